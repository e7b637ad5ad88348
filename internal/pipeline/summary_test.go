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

func quality(reasons ...string) (*string, *string) {
	if len(reasons) == 0 {
		return nil, nil
	}
	q := "SUSPECT"
	joined := reasons[0]
	for _, r := range reasons[1:] {
		joined += "|" + r
	}
	return &q, &joined
}

func TestSummarizeQualityCountsOKAndSuspectAndTopReasons(t *testing.T) {
	var rows []Observations
	q1, e1 := quality(ReasonFluxAboveMax)
	q2, e2 := quality(ReasonFluxAboveMax, ReasonRecordGap)
	rows = append(rows,
		Observations{Observation: schema.Observation{Quality: nil}},
		Observations{Observation: schema.Observation{Quality: q1, QualityExplanation: e1}},
		Observations{Observation: schema.Observation{Quality: q2, QualityExplanation: e2}},
	)

	s := SummarizeQuality(rows, 5)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.OK)
	assert.Equal(t, 2, s.Suspect)
	require.NotEmpty(t, s.TopReasons)
	assert.Equal(t, ReasonFluxAboveMax, s.TopReasons[0].Reason)
	assert.Equal(t, 2, s.TopReasons[0].Count)
}

func TestSummarizeQualityRespectsTopN(t *testing.T) {
	var rows []Observations
	q, e := quality(ReasonFluxAboveMax, ReasonFluxBelowMin, ReasonRecordGap)
	rows = append(rows, Observations{Observation: schema.Observation{Quality: q, QualityExplanation: e}})

	s := SummarizeQuality(rows, 2)

	assert.Len(t, s.TopReasons, 2)
}

func TestSummarizeProvenanceExcludesDefaultSources(t *testing.T) {
	rows := []Observations{
		{Observation: schema.Observation{ParameterSources: map[string]string{
			ParamMaxFlux: string(ScopeSite), ParamMinFlux: string(ScopeDefault),
		}}},
	}

	s := SummarizeProvenance(rows, 5)

	require.Len(t, s.TopSources, 1)
	assert.Equal(t, string(ScopeSite), s.TopSources[0].Reason)
}

func TestSummarizeRecordsComputesDistinctCountsAndTimeframe(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(15 * time.Minute)
	t2 := t0.Add(30 * time.Minute)
	rows := []Observations{
		{Observation: schema.Observation{LoggerID: "77", SDI12Address: "1", TimestampUTC: t1}},
		{Observation: schema.Observation{LoggerID: "77", SDI12Address: "2", TimestampUTC: t0}},
		{Observation: schema.Observation{LoggerID: "77", SDI12Address: "1", TimestampUTC: t2}},
	}

	s := SummarizeRecords(rows)

	assert.Equal(t, 1, s.DistinctLoggers)
	assert.Equal(t, 2, s.DistinctSensors)
	assert.True(t, s.EarliestUTC.Equal(t0))
	assert.True(t, s.LatestUTC.Equal(t2))
}

func TestSplitPipeHandlesSingleAndMultipleReasons(t *testing.T) {
	assert.Equal(t, []string{"a"}, splitPipe("a"))
	assert.Equal(t, []string{"a", "b", "c"}, splitPipe("a|b|c"))
}
