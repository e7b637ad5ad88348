// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pipeline implements the transformation chain that turns parsed
// raw files into validated, enriched, calculated observations: flatten,
// fix timestamps, enrich with deployment metadata, resolve parameters,
// calculate sap-flux density, and score quality.
package pipeline

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// Flatten joins a parsed file's per-sensor thermistor-pair tables against
// its logger table into one row per (logger_id, record, sdi12_address,
// depth), carrying file provenance on every row.
func Flatten(pf *schema.ParsedFile) []schema.Observation {
	var out []schema.Observation
	for _, sensor := range pf.Sensors {
		for _, pair := range sensor.Pairs {
			for i, lrow := range pf.Logger {
				if i >= len(pair.Rows) {
					break
				}
				obs := schema.Observation{
					LoggerID:          lrow.LoggerID,
					Record:            lrow.Record,
					SDI12Address:      sensor.SDI12Address,
					Depth:             pair.Depth,
					RawLocalTimestamp: lrow.Timestamp,
					BatteryVoltageV:   lrow.BatteryVoltageV,
					PanelTemperatureC: lrow.PanelTemperatureC,
					ThermistorMetrics: pair.Rows[i],
					FileHash:          pf.FileHash,
				}
				out = append(out, obs)
			}
		}
	}
	return out
}
