// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytesIsStableAndContentAddressed(t *testing.T) {
	a := HashBytes([]byte("hello"))
	b := HashBytes([]byte("hello"))
	c := HashBytes([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64, "blake3-256 hex digest should be 64 characters")
}

func TestBatcherRunRejectsKnownAndWithinBatchDuplicates(t *testing.T) {
	b := NewBatcher()
	body := []byte("not a real TOA5 file")
	hash := HashBytes(body)

	res := b.Run([]FileInput{
		{Path: "a.dat", Bytes: body},
		{Path: "b.dat", Bytes: body},
	}, map[string]bool{hash: true})

	require.Len(t, res.Reports, 2)
	assert.Equal(t, StatusDuplicate, res.Reports[0].Status)
	assert.Equal(t, StatusDuplicate, res.Reports[1].Status)
	assert.Empty(t, res.NewHashes)
	assert.Empty(t, res.Parsed)
}

func TestBatcherRunOnlyDedupsSuccessfullyParsedHashes(t *testing.T) {
	b := NewBatcher()
	body := []byte("duplicate body, not parseable")

	res := b.Run([]FileInput{
		{Path: "a.dat", Bytes: body},
		{Path: "b.dat", Bytes: body},
	}, map[string]bool{})

	require.Len(t, res.Reports, 2)
	// A hash only enters seenThisBatch once something actually parses
	// successfully under it; two submissions of the same unparseable body
	// fail independently rather than the second being reported as a
	// duplicate of the first.
	assert.Equal(t, StatusFailed, res.Reports[0].Status)
	assert.Equal(t, StatusFailed, res.Reports[1].Status)
}

func TestBatcherRunRejectsNonUTF8(t *testing.T) {
	b := NewBatcher()
	invalid := []byte{0xff, 0xfe, 0xfd}

	res := b.Run([]FileInput{{Path: "bad.dat", Bytes: invalid}}, map[string]bool{})

	require.Len(t, res.Reports, 1)
	assert.Equal(t, StatusFailed, res.Reports[0].Status)
	assert.Empty(t, res.Reports[0].ParserAttempts)
}

func TestBatcherRunReportsNoMatchingParserAttempts(t *testing.T) {
	b := NewBatcher()
	res := b.Run([]FileInput{{Path: "garbage.dat", Bytes: []byte("just,some,csv,text\n1,2,3,4\n")}}, map[string]bool{})

	require.Len(t, res.Reports, 1)
	assert.Equal(t, StatusFailed, res.Reports[0].Status)
	assert.NotEmpty(t, res.Reports[0].ParserAttempts, "every registered parser should have recorded an attempt")
}

func TestSummarizeTalliesByStatus(t *testing.T) {
	reports := []FileReport{
		{Status: StatusParsed},
		{Status: StatusParsed},
		{Status: StatusDuplicate},
		{Status: StatusFailed},
	}

	s := Summarize(reports)

	assert.Equal(t, Summary{Total: 4, Parsed: 2, Duplicates: 1, Failed: 1}, s)
}
