// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

const configSchema = `{
    "type": "object",
    "description": "Configuration for the cc-statsfs daemon.",
    "required": ["mountpoint"],
    "properties": {
        "mountpoint": {
            "description": "Path at which the stats tree is mounted as a FUSE filesystem.",
            "type": "string"
        },
        "mount-options": {
            "description": "Ownership and permission bits applied to every directory and file of the mount.",
            "type": "object",
            "properties": {
                "uid": {
                    "description": "Numeric uid that owns every published entry. Defaults to the daemon's own uid.",
                    "type": "integer",
                    "minimum": 0
                },
                "gid": {
                    "description": "Numeric gid that owns every published entry. Defaults to the daemon's own gid.",
                    "type": "integer",
                    "minimum": 0
                },
                "mode": {
                    "description": "Octal permission bits applied to directories; value files use the descriptor's own Mode.",
                    "type": "string",
                    "pattern": "^0?[0-7]{3,4}$"
                },
                "allow-other": {
                    "description": "Pass allow_other to the FUSE mount so non-owning users may read published values.",
                    "type": "boolean"
                }
            }
        },
        "metrics": {
            "description": "Metric definitions, validated and decoded; the daemon does not register them with the metrics exporter.",
            "type": "array",
            "items": {
                "type": "object",
                "required": ["name"],
                "properties": {
                    "name": {
                        "description": "Metric name.",
                        "type": "string"
                    },
                    "unit": {
                        "description": "Optional unit annotation, informational only.",
                        "type": "string"
                    },
                    "frequency": {
                        "description": "Expected publish interval in seconds, informational only.",
                        "type": "integer",
                        "minimum": 1
                    }
                }
            }
        },
        "debug": {
            "description": "Debug and diagnostics toggles.",
            "type": "object",
            "properties": {
                "gops": {
                    "description": "Start a github.com/google/gops agent for live process introspection.",
                    "type": "boolean"
                },
                "log-level": {
                    "description": "One of debug, info, warn, err.",
                    "type": "string"
                },
                "log-date": {
                    "description": "Prefix log lines with a timestamp instead of relying on systemd's own.",
                    "type": "boolean"
                }
            }
        },
        "user": {
            "description": "Unprivileged user to switch to after the mount is established.",
            "type": "string"
        },
        "group": {
            "description": "Unprivileged group to switch to after the mount is established.",
            "type": "string"
        }
    }
}`
