// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"sort"
	"time"
)

// QualitySummary tallies quality outcomes and the most common suspect
// reasons, for the transaction receipt.
type QualitySummary struct {
	Total      int              `json:"total"`
	OK         int              `json:"ok"`
	Suspect    int              `json:"suspect"`
	TopReasons []ReasonCount    `json:"top_reasons"`
}

// ReasonCount is one entry of a top-N reason-code breakdown.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// ProvenanceSummary tallies how often each non-default override scope
// was the winning source, across every resolved parameter.
type ProvenanceSummary struct {
	TopSources []ReasonCount `json:"top_sources"`
}

// RecordSummary describes the shape of one run's output rows: distinct
// loggers/sensors touched and the UTC timeframe covered.
type RecordSummary struct {
	DistinctLoggers int       `json:"distinct_loggers"`
	DistinctSensors int       `json:"distinct_sensors"`
	EarliestUTC     time.Time `json:"earliest_utc"`
	LatestUTC       time.Time `json:"latest_utc"`
}

// SummarizeQuality builds a QualitySummary from scored observations.
func SummarizeQuality(obs []Observations, topN int) QualitySummary {
	s := QualitySummary{Total: len(obs)}
	counts := map[string]int{}
	for _, o := range obs {
		if o.Quality == nil {
			s.OK++
			continue
		}
		s.Suspect++
		for _, reason := range splitPipe(*o.QualityExplanation) {
			counts[reason]++
		}
	}
	s.TopReasons = topCounts(counts, topN)
	return s
}

// SummarizeProvenance builds a ProvenanceSummary from resolved
// observations, counting only non-default sources.
func SummarizeProvenance(obs []Observations, topN int) ProvenanceSummary {
	counts := map[string]int{}
	for _, o := range obs {
		for _, source := range o.ParameterSources {
			if source != string(ScopeDefault) {
				counts[source]++
			}
		}
	}
	return ProvenanceSummary{TopSources: topCounts(counts, topN)}
}

// SummarizeRecords builds a RecordSummary from the flattened, timestamp-
// fixed observations.
func SummarizeRecords(obs []Observations) RecordSummary {
	loggers := map[string]bool{}
	sensors := map[string]bool{}
	var s RecordSummary
	for i, o := range obs {
		loggers[o.LoggerID] = true
		sensors[o.LoggerID+"\x00"+o.SDI12Address] = true
		if i == 0 || o.TimestampUTC.Before(s.EarliestUTC) {
			s.EarliestUTC = o.TimestampUTC
		}
		if i == 0 || o.TimestampUTC.After(s.LatestUTC) {
			s.LatestUTC = o.TimestampUTC
		}
	}
	s.DistinctLoggers = len(loggers)
	s.DistinctSensors = len(sensors)
	return s
}

func splitPipe(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func topCounts(counts map[string]int, topN int) []ReasonCount {
	out := make([]ReasonCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, ReasonCount{Reason: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
