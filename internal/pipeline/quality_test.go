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

func baseObs(ts time.Time) Observations {
	return Observations{Observation: schema.Observation{
		LoggerID:         "77",
		SDI12Address:     "1",
		TimestampUTC:     ts,
		Parameters:       defaultParams(),
		ParameterSources: map[string]string{},
	}}
}

func TestScoreNoReasonsLeavesQualityNil(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dep := Deployment{LoggerID: "77", SDI12Address: "1", StartUTC: now.Add(-24 * time.Hour)}
	o := baseObs(now.Add(-time.Hour))
	o.Deployment = &dep

	ec := &ExecutionContext{Now: now, Parameters: DefaultCatalog()}
	rows := []Observations{o}

	Score(rows, ec)

	assert.Nil(t, rows[0].Quality)
	assert.Nil(t, rows[0].QualityExplanation)
}

func TestScoreFlagsTimestampBeforeDeploymentStart(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dep := Deployment{LoggerID: "77", SDI12Address: "1", StartUTC: now.Add(-time.Hour)}
	o := baseObs(now.Add(-2 * time.Hour))
	o.Deployment = &dep

	ec := &ExecutionContext{Now: now, Parameters: DefaultCatalog()}
	rows := []Observations{o}

	Score(rows, ec)

	require.NotNil(t, rows[0].Quality)
	assert.Equal(t, "SUSPECT", *rows[0].Quality)
	assert.Contains(t, *rows[0].QualityExplanation, ReasonTimestampBeforeDeployment)
}

func TestScoreFlagsTimestampAfterDeploymentEnd(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(-2 * time.Hour)
	dep := Deployment{LoggerID: "77", SDI12Address: "1", StartUTC: now.Add(-48 * time.Hour), EndUTC: &end}
	o := baseObs(now.Add(-time.Hour))
	o.Deployment = &dep

	ec := &ExecutionContext{Now: now, Parameters: DefaultCatalog()}
	rows := []Observations{o}

	Score(rows, ec)

	require.NotNil(t, rows[0].Quality)
	assert.Contains(t, *rows[0].QualityExplanation, ReasonTimestampAfterDeployment)
}

func TestScoreFlagsTimestampBeforeFirstDeploymentWhenUnmatched(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	earliestStart := now.Add(-10 * 24 * time.Hour)
	o := baseObs(earliestStart.Add(-time.Hour)) // no Deployment matched on this row

	ec := &ExecutionContext{
		Now:         now,
		Parameters:  DefaultCatalog(),
		Deployments: []Deployment{{LoggerID: "77", SDI12Address: "1", StartUTC: earliestStart}},
	}
	rows := []Observations{o}

	Score(rows, ec)

	require.NotNil(t, rows[0].Quality)
	assert.Contains(t, *rows[0].QualityExplanation, ReasonTimestampBeforeFirstDeployment)
}

func TestScoreFlagsFutureTimestampBeyondLeadMinutes(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	o := baseObs(now.Add(time.Hour)) // far beyond the default 5-minute lead

	ec := &ExecutionContext{Now: now, Parameters: DefaultCatalog()}
	rows := []Observations{o}

	Score(rows, ec)

	require.NotNil(t, rows[0].Quality)
	assert.Contains(t, *rows[0].QualityExplanation, ReasonTimestampFuture)
}

func TestScoreFlagsRecordGapAcrossDefaultGapYears(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	early := baseObs(now.Add(-3 * 365 * 24 * time.Hour))
	early.Record = 1
	late := baseObs(now.Add(-time.Hour))
	late.Record = 2

	ec := &ExecutionContext{Now: now, Parameters: DefaultCatalog()}
	rows := []Observations{early, late}

	Score(rows, ec)

	assert.Nil(t, rows[0].Quality)
	require.NotNil(t, rows[1].Quality)
	assert.Contains(t, *rows[1].QualityExplanation, ReasonRecordGap)
}

func TestScoreFlagsFluxAboveAndBelowBounds(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ec := &ExecutionContext{Now: now, Parameters: DefaultCatalog()}

	above := baseObs(now.Add(-time.Hour))
	above.SapFluxDensityJDMACmHr = ptr(999)

	below := baseObs(now.Add(-time.Hour))
	below.Record = 2
	below.SapFluxDensityJDMACmHr = ptr(-999)

	rows := []Observations{above, below}
	Score(rows, ec)

	require.NotNil(t, rows[0].Quality)
	assert.Contains(t, *rows[0].QualityExplanation, ReasonFluxAboveMax)
	require.NotNil(t, rows[1].Quality)
	assert.Contains(t, *rows[1].QualityExplanation, ReasonFluxBelowMin)
}

func TestEarliestDeploymentStartReturnsFalseWhenNoneMatch(t *testing.T) {
	ec := &ExecutionContext{}
	_, ok := earliestDeploymentStart(ec, "unknown", "1")
	assert.False(t, ok)
}
