// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest implements the ingestion batcher: content-addressed
// deduplication and parser-registry dispatch for a batch of candidate raw
// files.
package ingest

import (
	"unicode/utf8"

	"lukechampine.com/blake3"

	"github.com/fieldlab-science/sapfluxcore/internal/parsers"
	"github.com/fieldlab-science/sapfluxcore/pkg/log"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// Status classifies the outcome of one file within a batch.
type Status string

const (
	StatusParsed    Status = "Parsed"
	StatusDuplicate Status = "Duplicate"
	StatusFailed    Status = "Failed"
)

// FileInput is one candidate raw file submitted to a transaction.
type FileInput struct {
	Path  string
	Bytes []byte
}

// FileReport summarizes what happened to one input file.
type FileReport struct {
	Path            string
	Hash            string
	Status          Status
	ParserAttempts  []parsers.Attempt
}

// Result is the batcher's return value: the files that parsed, used later
// by the pipeline, the per-file reports for the transaction receipt, and
// the hashes that were newly seen (candidates for blob upload).
type Result struct {
	Parsed    []*schema.ParsedFile
	Reports   []FileReport
	NewHashes []string
}

// Batcher runs the content-addressing, dedup, and parsing policy.
type Batcher struct {
	registry *parsers.Registry
}

// NewBatcher constructs a Batcher with the standard five-format registry.
func NewBatcher() *Batcher {
	return &Batcher{registry: parsers.NewRegistry()}
}

// HashBytes computes the content-addressing hash used throughout the
// system: a BLAKE3-256 digest, hex encoded.
func HashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hexEncode(sum[:])
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// Run applies the per-file policy: hash, check against
// knownHashes, reject non-UTF8 bytes, and otherwise dispatch to the parser
// registry. knownHashes is read-only; Run does not mutate it.
func (b *Batcher) Run(files []FileInput, knownHashes map[string]bool) Result {
	var res Result
	seenThisBatch := map[string]bool{}

	for _, f := range files {
		hash := HashBytes(f.Bytes)

		if knownHashes[hash] || seenThisBatch[hash] {
			res.Reports = append(res.Reports, FileReport{Path: f.Path, Hash: hash, Status: StatusDuplicate})
			continue
		}

		if !utf8.Valid(f.Bytes) {
			res.Reports = append(res.Reports, FileReport{Path: f.Path, Hash: hash, Status: StatusFailed})
			log.Warnf("ingest: %s: not valid UTF-8, rejecting", f.Path)
			continue
		}

		text := string(f.Bytes)
		parsed, err := b.registry.Parse(text)
		if err != nil {
			var attempts []parsers.Attempt
			if nme, ok := err.(*parsers.NoMatchingParserError); ok {
				attempts = nme.Attempts
			}
			res.Reports = append(res.Reports, FileReport{
				Path: f.Path, Hash: hash, Status: StatusFailed, ParserAttempts: attempts,
			})
			log.Warnf("ingest: %s: no parser matched: %s", f.Path, err.Error())
			continue
		}

		parsed.FileHash = hash
		res.Parsed = append(res.Parsed, parsed)
		res.NewHashes = append(res.NewHashes, hash)
		seenThisBatch[hash] = true
		res.Reports = append(res.Reports, FileReport{Path: f.Path, Hash: hash, Status: StatusParsed})
	}

	return res
}

// Summary is the ingestion_summary carried in the transaction receipt.
type Summary struct {
	Total      int `json:"total"`
	Parsed     int `json:"parsed"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Summarize tallies a Result's reports into a Summary.
func Summarize(reports []FileReport) Summary {
	s := Summary{Total: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case StatusParsed:
			s.Parsed++
		case StatusDuplicate:
			s.Duplicates++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
