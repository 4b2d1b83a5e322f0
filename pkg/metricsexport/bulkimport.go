// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricsexport

import (
	"fmt"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
)

// DecodeLineBatch is an additive convenience for producers that already
// speak InfluxDB line protocol internally (e.g. one that also feeds a
// cc-backend-style metric store): it decodes a batch of pre-encoded
// points and re-emits one row per field of each point into e, with the
// point's measurement name as the first field and the field key as the
// second. It does not share
// escaping with values/annotations (see escape.go) — line protocol's
// own field/tag escaping is a different, incompatible grammar.
func DecodeLineBatch(dec *lineprotocol.Decoder, e *Emitter) error {
	t := time.Now()
	for dec.Next() {
		measurement, err := dec.Measurement()
		if err != nil {
			return err
		}
		name := string(measurement)

		for {
			key, val, err := dec.NextField()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}

			switch val.Kind() {
			case lineprotocol.Float:
				e.EmitStr(fmt.Sprintf("%g", val.FloatV()), name, string(key))
			case lineprotocol.Int:
				e.EmitInt(val.IntV(), name, string(key))
			case lineprotocol.Uint:
				e.EmitInt(int64(val.UintV()), name, string(key))
			case lineprotocol.String:
				e.EmitStr(val.StringV(), name, string(key))
			case lineprotocol.Bool:
				b := int64(0)
				if val.BoolV() {
					b = 1
				}
				e.EmitInt(b, name, string(key))
			default:
				return fmt.Errorf("[METRICSEXPORT]> unsupported line-protocol value kind: %s", val.Kind().String())
			}
		}

		var err error
		if t, err = dec.Time(lineprotocol.Nanosecond, t); err != nil {
			return err
		}
	}
	return nil
}
