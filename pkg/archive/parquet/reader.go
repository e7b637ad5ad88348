// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parquet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	pq "github.com/parquet-go/parquet-go"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// ParquetRowToObservation reverses ObservationToParquetRow, decoding the
// JSON-encoded map columns back into their typed map forms.
func ParquetRowToObservation(row *ParquetObservationRow) (schema.Observation, error) {
	o := schema.Observation{
		LoggerID:          row.LoggerID,
		Record:            row.Record,
		SDI12Address:      row.SDI12Address,
		Depth:             schema.Depth(row.Depth),
		RawLocalTimestamp: time.UnixMicro(row.RawLocalTimestamp).UTC(),
		BatteryVoltageV:   row.BatteryVoltageV,
		PanelTemperatureC: row.PanelTemperatureC,

		ThermistorMetrics: schema.ThermistorMetrics{
			Alpha:                    row.Alpha,
			Beta:                     row.Beta,
			TimeToMaxTempDownstreamS: row.TimeToMaxTempDownstreamS,
			TempPreUpstreamC:         row.TempPreUpstreamC,
			TempPostUpstreamC:        row.TempPostUpstreamC,
			TempDeltaUpstreamC:       row.TempDeltaUpstreamC,
			TempPreDownstreamC:       row.TempPreDownstreamC,
			TempPostDownstreamC:      row.TempPostDownstreamC,
			TempDeltaDownstreamC:     row.TempDeltaDownstreamC,
		},

		FileHash:         row.FileHash,
		TimestampUTC:     time.UnixMicro(row.TimestampUTC).UTC(),
		UTCOffsetSeconds: int(row.UTCOffsetSeconds),
		FileSetSignature: row.FileSetSignature,

		DeploymentID: row.DeploymentID,
		ProjectID:    row.ProjectID, ProjectCode: row.ProjectCode, ProjectName: row.ProjectName,
		SiteID: row.SiteID, SiteCode: row.SiteCode, SiteName: row.SiteName,
		ZoneID: row.ZoneID, ZoneName: row.ZoneName,
		PlotID: row.PlotID, PlotName: row.PlotName,
		PlantID: row.PlantID, PlantCode: row.PlantCode,
		SpeciesID: row.SpeciesID, SpeciesCode: row.SpeciesCode, SpeciesScientificName: row.SpeciesScientificName,
		StemID: row.StemID, StemCode: row.StemCode,

		VhHRMCmHr: row.VhHRMCmHr, VhTmaxCmHr: row.VhTmaxCmHr,
		VcHRMCmHr: row.VcHRMCmHr, VcTmaxCmHr: row.VcTmaxCmHr,
		JHRMCmHr: row.JHRMCmHr, JTmaxCmHr: row.JTmaxCmHr,
		CalculationMethodUsed:  row.CalculationMethodUsed,
		SapFluxDensityJDMACmHr: row.SapFluxDensityJDMACmHr,

		Quality: row.Quality, QualityExplanation: row.QualityExplanation,
	}

	if len(row.InstallationMetadataJSON) > 0 {
		if err := json.Unmarshal(row.InstallationMetadataJSON, &o.InstallationMetadata); err != nil {
			return o, fmt.Errorf("decode installation_metadata: %w", err)
		}
	}
	if len(row.ParametersJSON) > 0 {
		if err := json.Unmarshal(row.ParametersJSON, &o.Parameters); err != nil {
			return o, fmt.Errorf("decode parameters: %w", err)
		}
	}
	if len(row.ParameterSourcesJSON) > 0 {
		if err := json.Unmarshal(row.ParameterSourcesJSON, &o.ParameterSources); err != nil {
			return o, fmt.Errorf("decode parameter_sources: %w", err)
		}
	}

	return o, nil
}

// ReadObservations decodes a Parquet file written by WriteObservations
// back into the canonical Observation shape, for both end-user readers of
// a published dataset and the round-trip cartridge check.
func ReadObservations(data []byte) ([]schema.Observation, error) {
	file, err := pq.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := pq.NewGenericReader[ParquetObservationRow](file)
	defer reader.Close()

	rows := make([]ParquetObservationRow, file.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	rows = rows[:n]

	out := make([]schema.Observation, len(rows))
	for i := range rows {
		o, err := ParquetRowToObservation(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = o
	}
	return out, nil
}
