// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

func TestFlattenProducesOneRowPerRecordSensorDepth(t *testing.T) {
	alpha1 := 0.1
	alpha2 := 0.2
	pf := &schema.ParsedFile{
		FileHash: "abc123",
		Logger: schema.LoggerTable{
			{LoggerID: "77", Record: 1, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{LoggerID: "77", Record: 2, Timestamp: time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC)},
		},
		Sensors: []schema.SensorRecord{
			{
				SDI12Address: "1",
				Pairs: []schema.ThermistorPairTable{
					{
						Depth: schema.DepthInner,
						Rows: []schema.ThermistorMetrics{
							{Alpha: &alpha1},
							{Alpha: &alpha2},
						},
					},
				},
			},
		},
	}

	out := Flatten(pf)

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Record)
	assert.Equal(t, "1", out[0].SDI12Address)
	assert.Equal(t, schema.DepthInner, out[0].Depth)
	assert.Equal(t, "abc123", out[0].FileHash)
	require.NotNil(t, out[0].Alpha)
	assert.InDelta(t, 0.1, *out[0].Alpha, 1e-9)
	assert.Equal(t, int64(2), out[1].Record)
}

func TestFlattenTwoSensorsTwoDepthsProducesFourRowsPerRecord(t *testing.T) {
	pf := &schema.ParsedFile{
		Logger: schema.LoggerTable{
			{LoggerID: "77", Record: 1, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		Sensors: []schema.SensorRecord{
			{SDI12Address: "1", Pairs: []schema.ThermistorPairTable{
				{Depth: schema.DepthInner, Rows: []schema.ThermistorMetrics{{}}},
				{Depth: schema.DepthOuter, Rows: []schema.ThermistorMetrics{{}}},
			}},
			{SDI12Address: "2", Pairs: []schema.ThermistorPairTable{
				{Depth: schema.DepthInner, Rows: []schema.ThermistorMetrics{{}}},
				{Depth: schema.DepthOuter, Rows: []schema.ThermistorMetrics{{}}},
			}},
		},
	}

	out := Flatten(pf)

	assert.Len(t, out, 4)
}

func TestFlattenStopsAtShorterPairRowCount(t *testing.T) {
	pf := &schema.ParsedFile{
		Logger: schema.LoggerTable{
			{LoggerID: "77", Record: 1, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{LoggerID: "77", Record: 2, Timestamp: time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC)},
		},
		Sensors: []schema.SensorRecord{
			{SDI12Address: "1", Pairs: []schema.ThermistorPairTable{
				{Depth: schema.DepthInner, Rows: []schema.ThermistorMetrics{{}}}, // only 1 row, logger has 2
			}},
		},
	}

	out := Flatten(pf)

	assert.Len(t, out, 1)
}
