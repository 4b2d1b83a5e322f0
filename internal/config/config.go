// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config decodes and validates the cc-statsfs daemon's JSON
// configuration file against an inline JSON Schema.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MountOptions controls ownership and permissions of the mounted tree.
type MountOptions struct {
	UID        *uint32 `json:"uid,omitempty"`
	GID        *uint32 `json:"gid,omitempty"`
	Mode       string  `json:"mode,omitempty"`
	AllowOther bool    `json:"allow-other,omitempty"`
}

// MetricDef is one entry of the "metrics" array. Entries are validated
// and decoded into Config.Metrics; cmd/statsfsd does not register them
// with the metrics exporter.
type MetricDef struct {
	Name      string `json:"name"`
	Unit      string `json:"unit,omitempty"`
	Frequency int64  `json:"frequency,omitempty"`
}

// Debug toggles diagnostic facilities.
type Debug struct {
	EnableGops bool   `json:"gops"`
	LogLevel   string `json:"log-level"`
	LogDate    bool   `json:"log-date"`
}

// Config is the top-level shape of the daemon's configuration file.
type Config struct {
	Mountpoint   string       `json:"mountpoint"`
	MountOptions MountOptions `json:"mount-options"`
	Metrics      []MetricDef  `json:"metrics"`
	Debug        Debug        `json:"debug"`

	// User and Group let a daemon started as root (needed to mount
	// under a system path or chown entries to an unprivileged uid)
	// drop back down once the mount is established.
	User  string `json:"user,omitempty"`
	Group string `json:"group,omitempty"`
}

// Validate checks instance against the package's JSON Schema, returning
// an error rather than calling log.Fatal: this package has no one-shot
// startup caller that should die mid-process over a bad config.
func Validate(instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("cc-statsfs-config.json", configSchema)
	if err != nil {
		return fmt.Errorf("[CONFIG]> compiling schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("[CONFIG]> malformed json: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("[CONFIG]> schema validation failed: %w", err)
	}
	return nil
}

// Load validates and decodes raw into a Config.
func Load(raw json.RawMessage) (*Config, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("[CONFIG]> decoding config: %w", err)
	}
	return &cfg, nil
}
