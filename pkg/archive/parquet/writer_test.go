// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parquet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func makeTestObservation() schema.Observation {
	return schema.Observation{
		LoggerID:          "CR1000_01",
		Record:            42,
		SDI12Address:      "0",
		Depth:             schema.DepthOuter,
		RawLocalTimestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		BatteryVoltageV:   floatPtr(12.6),
		ThermistorMetrics: schema.ThermistorMetrics{
			Alpha:      floatPtr(1.2),
			Beta:       floatPtr(0.8),
			TempPreUpstreamC: floatPtr(21.5),
		},
		FileHash:         "abc123",
		TimestampUTC:     time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC),
		UTCOffsetSeconds: -7 * 3600,
		FileSetSignature: "abc123",
		DeploymentID:     strPtr("dep-1"),
		SiteCode:         strPtr("site-a"),
		InstallationMetadata: map[string]string{"notes": "east-facing"},
		Parameters: map[string]schema.ParameterValue{
			"thermal_diffusivity_k": {Kind: schema.ParamFloat, Float: 0.0024},
		},
		ParameterSources: map[string]string{"thermal_diffusivity_k": "default"},
		VhHRMCmHr:        floatPtr(5.1),
		CalculationMethodUsed: "HRM",
		Quality:          strPtr("OK"),
	}
}

func TestObservationToParquetRowRoundTrip(t *testing.T) {
	o := makeTestObservation()

	row, err := ObservationToParquetRow(&o)
	require.NoError(t, err)
	assert.Equal(t, o.LoggerID, row.LoggerID)
	assert.Equal(t, o.FileHash, row.FileHash)
	assert.NotEmpty(t, row.ParametersJSON)
	assert.NotEmpty(t, row.InstallationMetadataJSON)

	back, err := ParquetRowToObservation(&row)
	require.NoError(t, err)
	assert.Equal(t, o.LoggerID, back.LoggerID)
	assert.Equal(t, o.Record, back.Record)
	assert.Equal(t, o.SDI12Address, back.SDI12Address)
	assert.Equal(t, o.Depth, back.Depth)
	assert.Equal(t, o.TimestampUTC.Unix(), back.TimestampUTC.Unix())
	assert.Equal(t, *o.DeploymentID, *back.DeploymentID)
	assert.Equal(t, o.InstallationMetadata, back.InstallationMetadata)
	assert.InDelta(t, o.Parameters["thermal_diffusivity_k"].Float, back.Parameters["thermal_diffusivity_k"].Float, 1e-9)
	assert.Equal(t, o.ParameterSources, back.ParameterSources)
	assert.Equal(t, *o.Quality, *back.Quality)
}

func TestWriteReadObservationsRoundTrip(t *testing.T) {
	obs := []schema.Observation{makeTestObservation(), makeTestObservation()}
	obs[1].Record = 43
	obs[1].SDI12Address = "1"

	data, err := WriteObservations(obs)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := ReadObservations(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byRecord := map[int64]schema.Observation{}
	for _, o := range got {
		byRecord[o.Record] = o
	}
	assert.Equal(t, "0", byRecord[42].SDI12Address)
	assert.Equal(t, "1", byRecord[43].SDI12Address)
}

func TestWriteObservationsEmpty(t *testing.T) {
	data, err := WriteObservations(nil)
	require.NoError(t, err)

	got, err := ReadObservations(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}
