// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestCheckAliasOverlapsFlagsOverlappingWindowsOnSameLogger(t *testing.T) {
	aliases := []DataloggerAliasAdd{
		{DataloggerSerial: "SN1", LoggerID: "77", StartUTC: "2024-01-01T00:00:00Z", EndUTC: strp("2024-06-01T00:00:00Z")},
		{DataloggerSerial: "SN1", LoggerID: "78", StartUTC: "2024-03-01T00:00:00Z", EndUTC: strp("2024-09-01T00:00:00Z")},
	}

	problems := checkAliasOverlaps(aliases)

	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "SN1")
}

func TestCheckAliasOverlapsAllowsAdjacentNonOverlappingWindows(t *testing.T) {
	aliases := []DataloggerAliasAdd{
		{DataloggerSerial: "SN1", LoggerID: "77", StartUTC: "2024-01-01T00:00:00Z", EndUTC: strp("2024-06-01T00:00:00Z")},
		{DataloggerSerial: "SN1", LoggerID: "78", StartUTC: "2024-06-01T00:00:00Z", EndUTC: strp("2024-09-01T00:00:00Z")},
	}

	problems := checkAliasOverlaps(aliases)

	assert.Empty(t, problems)
}

func TestCheckAliasOverlapsIgnoresDifferentDataloggers(t *testing.T) {
	aliases := []DataloggerAliasAdd{
		{DataloggerSerial: "SN1", LoggerID: "77", StartUTC: "2024-01-01T00:00:00Z", EndUTC: strp("2024-06-01T00:00:00Z")},
		{DataloggerSerial: "SN2", LoggerID: "78", StartUTC: "2024-03-01T00:00:00Z", EndUTC: strp("2024-09-01T00:00:00Z")},
	}

	problems := checkAliasOverlaps(aliases)

	assert.Empty(t, problems)
}

func TestCheckAliasOverlapsTreatsNilEndAsOpenEnded(t *testing.T) {
	aliases := []DataloggerAliasAdd{
		{DataloggerSerial: "SN1", LoggerID: "77", StartUTC: "2024-01-01T00:00:00Z", EndUTC: nil},
		{DataloggerSerial: "SN1", LoggerID: "78", StartUTC: "2025-01-01T00:00:00Z", EndUTC: nil},
	}

	problems := checkAliasOverlaps(aliases)

	assert.Len(t, problems, 1)
}

func TestWindowsOverlapHalfOpenBoundary(t *testing.T) {
	type w = struct{ start, end string }
	a := w{start: "2024-01-01T00:00:00Z", end: "2024-06-01T00:00:00Z"}
	b := w{start: "2024-06-01T00:00:00Z", end: "2024-09-01T00:00:00Z"}

	assert.False(t, windowsOverlap(a, b), "abutting windows with equal boundary should not overlap")
}

func TestPreflightErrorListsEveryProblem(t *testing.T) {
	err := &PreflightError{Problems: []string{"problem one", "problem two"}}
	assert.Contains(t, err.Error(), "problem one")
	assert.Contains(t, err.Error(), "problem two")
	assert.Contains(t, err.Error(), "2 problem(s)")
}
