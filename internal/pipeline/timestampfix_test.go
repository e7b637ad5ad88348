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

func naive(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestFileSetSignatureIsOrderIndependent(t *testing.T) {
	a := fileSetSignature(map[string]bool{"h2": true, "h1": true})
	b := fileSetSignature(map[string]bool{"h1": true, "h2": true})
	assert.Equal(t, a, b)
	assert.Equal(t, "h1+h2", a)
}

func TestFixTimestampsResolvesChunkAgainstUTCDeployment(t *testing.T) {
	ec := &ExecutionContext{
		Deployments: []Deployment{
			{LoggerID: "77", SDI12Address: "1", StartUTC: naive(2020, 1, 1, 0, 0), SiteTimezone: "UTC"},
		},
	}
	obs := []schema.Observation{
		{LoggerID: "77", Record: 1, FileHash: "f1", RawLocalTimestamp: naive(2024, 1, 15, 8, 0)},
		{LoggerID: "77", Record: 2, FileHash: "f1", RawLocalTimestamp: naive(2024, 1, 15, 8, 15)},
	}

	out, skipped := FixTimestamps(obs, ec)

	require.Empty(t, skipped)
	require.Len(t, out, 2)
	assert.True(t, out[0].TimestampUTC.Equal(naive(2024, 1, 15, 8, 0)))
	assert.Equal(t, 0, out[0].UTCOffsetSeconds)
	assert.Equal(t, "f1", out[0].FileSetSignature)
}

func TestFixTimestampsSkipsChunkWithNoMatchingDeployment(t *testing.T) {
	ec := &ExecutionContext{Deployments: nil}
	obs := []schema.Observation{
		{LoggerID: "77", Record: 1, FileHash: "f1", RawLocalTimestamp: naive(2024, 1, 15, 8, 0)},
	}

	out, skipped := FixTimestamps(obs, ec)

	assert.Empty(t, out)
	require.Len(t, skipped, 1)
	assert.Equal(t, "77", skipped[0].LoggerID)
	assert.Equal(t, 1, skipped[0].RowCount)
}

func TestFixTimestampsGroupsByFileSetSignatureChange(t *testing.T) {
	ec := &ExecutionContext{
		Deployments: []Deployment{
			{LoggerID: "77", SDI12Address: "1", StartUTC: naive(2020, 1, 1, 0, 0), SiteTimezone: "UTC"},
		},
	}
	// Record 2 is contributed by two files (a reprocessed overlapping
	// range); that changes its signature relative to record 1, so it
	// starts a new chunk with its own anchor.
	obs := []schema.Observation{
		{LoggerID: "77", Record: 1, FileHash: "f1", RawLocalTimestamp: naive(2024, 1, 15, 8, 0)},
		{LoggerID: "77", Record: 2, FileHash: "f1", RawLocalTimestamp: naive(2024, 1, 15, 8, 15)},
		{LoggerID: "77", Record: 2, FileHash: "f2", RawLocalTimestamp: naive(2024, 1, 15, 8, 15)},
		{LoggerID: "77", Record: 3, FileHash: "f2", RawLocalTimestamp: naive(2024, 1, 15, 8, 30)},
	}

	out, skipped := FixTimestamps(obs, ec)

	require.Empty(t, skipped)
	require.Len(t, out, 4)
	sigByRecord := map[int64]string{}
	for _, o := range out {
		sigByRecord[o.Record] = o.FileSetSignature
	}
	assert.Equal(t, "f1", sigByRecord[1])
	assert.Equal(t, "f1+f2", sigByRecord[2])
	assert.Equal(t, "f2", sigByRecord[3])
}

func TestResolveAmbiguousLocalFallBack(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2023-11-05 01:30 local occurs twice in America/New_York (fall back
	// at 02:00 -> 01:00). The rule picks the later, post-transition
	// (standard time, UTC-5) offset.
	ambiguous := naive(2023, 11, 5, 1, 30)
	utc, offset := resolveAmbiguousLocal(ambiguous, loc)

	assert.Equal(t, -5*3600, offset)
	assert.True(t, utc.Equal(time.Date(2023, 11, 5, 6, 30, 0, 0, time.UTC)))
}

func TestResolveAmbiguousLocalSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2023-03-12 02:30 local does not exist in America/New_York (clocks
	// jump from 02:00 to 03:00). The rule resolves it as if shifted an
	// hour later, against the unambiguous post-transition (EDT, UTC-4)
	// offset, then subtracts the hour back out.
	nonexistent := naive(2023, 3, 12, 2, 30)
	utc, offset := resolveAmbiguousLocal(nonexistent, loc)

	assert.Equal(t, -4*3600, offset)
	assert.True(t, utc.Equal(time.Date(2023, 3, 12, 6, 30, 0, 0, time.UTC)))
}

func TestResolveAmbiguousLocalUnambiguous(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	ordinary := naive(2024, 6, 1, 12, 0)
	utc, offset := resolveAmbiguousLocal(ordinary, loc)

	assert.Equal(t, -4*3600, offset)
	assert.True(t, utc.Equal(time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC)))
}
