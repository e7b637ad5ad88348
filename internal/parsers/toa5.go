// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// splitCSVLines parses raw text as comma-separated, double-quoted rows the
// way TOA5 exports are written, one []string per line.
func splitCSVLines(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, csvErr("%s", err.Error())
	}
	return rows, nil
}

// parseHeaderRow1 extracts the logger identity fields from row 1 of a
// TOA5-style export:
// "TOA5","<logger name>","<logger model>","<serial>","<os version>","<program name>","<program sig>","<table name>"
func parseHeaderRow1(fields []string) (schema.FileMetadata, *ParserError) {
	if len(fields) < 8 {
		return schema.FileMetadata{}, invalidHeader(1, "expected 8 fields, got %d", len(fields))
	}
	if !strings.EqualFold(fields[0], "TOA5") {
		return schema.FileMetadata{}, mismatch("row 1 tag %q is not TOA5", fields[0])
	}
	return schema.FileMetadata{
		LoggerName:   fields[1],
		LoggerModel:  fields[2],
		LoggerSerial: fields[3],
		OSVersion:    fields[4],
		ProgramName:  fields[5],
		ProgramSig:   fields[6],
		TableName:    fields[7],
	}, nil
}

// isSentinelNull reports whether a raw numeric field string represents one
// of the sentinels the dataloggers use for a missing reading.
func isSentinelNull(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return true
	}
	if strings.EqualFold(trimmed, "NAN") {
		return true
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.Abs(f-(-99.0)) < 1e-9 {
			return true
		}
	}
	return false
}

// parseNullableFloat converts a raw field to *float64, normalizing the
// null sentinels the dataloggers use.
func parseNullableFloat(raw string) (*float64, *ParserError) {
	if isSentinelNull(raw) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, csvErr("invalid numeric value %q", raw)
	}
	return &f, nil
}

// parseTimestamp accepts the two wall-clock formats datalogger firmware
// emits: the standard one with optional fractional seconds, and a legacy
// slash-delimited month/day/year-or-two-digit-year with no seconds field.
func parseTimestamp(raw string) (time.Time, *ParserError) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"1/2/06 15:04",
		"1/2/2006 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, csvErr("unrecognized timestamp format %q", raw)
}

// deriveLoggerIDFromName extracts the trailing digit run of a logger name,
// e.g. "CR300Series_420" -> "420", used when the logger_id column is absent
// or entirely null.
func deriveLoggerIDFromName(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	return name[i:]
}

// columnHeaderTemplate validates an observed header row against an expected
// ordered template of column names, case-sensitively.
func columnHeaderTemplate(row int, observed, expected []string) *ParserError {
	if len(observed) != len(expected) {
		return invalidHeader(row, "expected %d columns, got %d", len(expected), len(observed))
	}
	for i, want := range expected {
		if observed[i] != want {
			return invalidHeader(row, "column %d: expected %q, got %q", i, want, observed[i])
		}
	}
	return nil
}

// unitsTemplate validates the units row, matching each entry case
// insensitively against a set of acceptable strings (some formats allow a
// handful of equivalent unit spellings).
func unitsTemplate(row int, observed []string, expected [][]string) *ParserError {
	if len(observed) != len(expected) {
		return invalidHeader(row, "expected %d unit fields, got %d", len(expected), len(observed))
	}
	for i, accept := range expected {
		ok := false
		for _, a := range accept {
			if strings.EqualFold(observed[i], a) {
				ok = true
				break
			}
		}
		if !ok {
			return invalidHeader(row, "column %d: unit %q not in %v", i, observed[i], accept)
		}
	}
	return nil
}
