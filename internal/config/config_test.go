// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidConfig(t *testing.T) {
	raw := []byte(`{
		"mountpoint": "/run/cc-statsfs",
		"mount-options": {"uid": 1000, "gid": 1000, "mode": "0755"},
		"metrics": [{"name": "bytes_read", "unit": "bytes", "frequency": 10}],
		"debug": {"gops": true, "log-level": "info"}
	}`)

	cfg, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, "/run/cc-statsfs", cfg.Mountpoint)
	require.NotNil(t, cfg.MountOptions.UID)
	assert.EqualValues(t, 1000, *cfg.MountOptions.UID)
	assert.Equal(t, "0755", cfg.MountOptions.Mode)
	require.Len(t, cfg.Metrics, 1)
	assert.Equal(t, "bytes_read", cfg.Metrics[0].Name)
	assert.True(t, cfg.Debug.EnableGops)
}

func TestLoadRunAsAndLogDate(t *testing.T) {
	raw := []byte(`{
		"mountpoint": "/run/cc-statsfs",
		"user": "statsfs",
		"group": "statsfs",
		"debug": {"log-date": true}
	}`)

	cfg, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, "statsfs", cfg.User)
	assert.Equal(t, "statsfs", cfg.Group)
	assert.True(t, cfg.Debug.LogDate)
}

func TestLoadMissingMountpointRejected(t *testing.T) {
	raw := []byte(`{"debug": {"gops": false}}`)
	_, err := Load(raw)
	assert.Error(t, err)
}

func TestLoadMalformedModeRejected(t *testing.T) {
	raw := []byte(`{"mountpoint": "/mnt", "mount-options": {"mode": "abcd"}}`)
	_, err := Load(raw)
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLoadMetricMissingNameRejected(t *testing.T) {
	raw := []byte(`{"mountpoint": "/mnt", "metrics": [{"unit": "bytes"}]}`)
	_, err := Load(raw)
	assert.Error(t, err)
}
