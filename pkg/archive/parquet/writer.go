// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parquet

import (
	"bytes"
	"encoding/json"
	"fmt"

	pq "github.com/parquet-go/parquet-go"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// ObservationToParquetRow flattens one schema.Observation into its
// Parquet-encodable shape, JSON-encoding the two maps the columnar format
// has no native representation for.
func ObservationToParquetRow(o *schema.Observation) (ParquetObservationRow, error) {
	row := ParquetObservationRow{
		LoggerID:          o.LoggerID,
		Record:            o.Record,
		SDI12Address:      o.SDI12Address,
		Depth:             string(o.Depth),
		RawLocalTimestamp: o.RawLocalTimestamp.UnixMicro(),
		BatteryVoltageV:   o.BatteryVoltageV,
		PanelTemperatureC: o.PanelTemperatureC,

		Alpha:                    o.Alpha,
		Beta:                     o.Beta,
		TimeToMaxTempDownstreamS: o.TimeToMaxTempDownstreamS,
		TempPreUpstreamC:         o.TempPreUpstreamC,
		TempPostUpstreamC:        o.TempPostUpstreamC,
		TempDeltaUpstreamC:       o.TempDeltaUpstreamC,
		TempPreDownstreamC:       o.TempPreDownstreamC,
		TempPostDownstreamC:      o.TempPostDownstreamC,
		TempDeltaDownstreamC:     o.TempDeltaDownstreamC,

		FileHash:         o.FileHash,
		TimestampUTC:     o.TimestampUTC.UnixMicro(),
		UTCOffsetSeconds: int32(o.UTCOffsetSeconds),
		FileSetSignature: o.FileSetSignature,

		DeploymentID: o.DeploymentID,
		ProjectID:    o.ProjectID, ProjectCode: o.ProjectCode, ProjectName: o.ProjectName,
		SiteID: o.SiteID, SiteCode: o.SiteCode, SiteName: o.SiteName,
		ZoneID: o.ZoneID, ZoneName: o.ZoneName,
		PlotID: o.PlotID, PlotName: o.PlotName,
		PlantID: o.PlantID, PlantCode: o.PlantCode,
		SpeciesID: o.SpeciesID, SpeciesCode: o.SpeciesCode, SpeciesScientificName: o.SpeciesScientificName,
		StemID: o.StemID, StemCode: o.StemCode,

		VhHRMCmHr: o.VhHRMCmHr, VhTmaxCmHr: o.VhTmaxCmHr,
		VcHRMCmHr: o.VcHRMCmHr, VcTmaxCmHr: o.VcTmaxCmHr,
		JHRMCmHr: o.JHRMCmHr, JTmaxCmHr: o.JTmaxCmHr,
		CalculationMethodUsed:  o.CalculationMethodUsed,
		SapFluxDensityJDMACmHr: o.SapFluxDensityJDMACmHr,

		Quality: o.Quality, QualityExplanation: o.QualityExplanation,
	}

	if len(o.InstallationMetadata) > 0 {
		b, err := json.Marshal(o.InstallationMetadata)
		if err != nil {
			return row, fmt.Errorf("encode installation_metadata: %w", err)
		}
		row.InstallationMetadataJSON = b
	}
	if len(o.Parameters) > 0 {
		b, err := json.Marshal(o.Parameters)
		if err != nil {
			return row, fmt.Errorf("encode parameters: %w", err)
		}
		row.ParametersJSON = b
	}
	if len(o.ParameterSources) > 0 {
		b, err := json.Marshal(o.ParameterSources)
		if err != nil {
			return row, fmt.Errorf("encode parameter_sources: %w", err)
		}
		row.ParameterSourcesJSON = b
	}

	return row, nil
}

// WriteObservations encodes a batch of observations as a single
// Zstd-compressed Parquet file, sorted by logger/record/sdi address/
// thermistor depth so files from the same run diff cleanly across runs.
func WriteObservations(obs []schema.Observation) ([]byte, error) {
	rows := make([]ParquetObservationRow, len(obs))
	for i := range obs {
		row, err := ObservationToParquetRow(&obs[i])
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		rows[i] = row
	}

	var buf bytes.Buffer
	writer := pq.NewGenericWriter[ParquetObservationRow](&buf,
		pq.Compression(&pq.Zstd),
		pq.SortingWriterConfig(pq.SortingColumns(
			pq.Ascending("logger_id"),
			pq.Ascending("record"),
			pq.Ascending("sdi12_address"),
			pq.Ascending("thermistor_depth"),
		)),
	)

	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}
