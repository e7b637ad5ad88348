// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"github.com/fieldlab-science/sapfluxcore/pkg/log"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// Result bundles a completed pipeline run's output rows and the dropped-
// chunk reports the timestamp fixer produced along the way.
type Result struct {
	Observations []Observations
	Skipped      []SkippedChunk
}

// Run executes the full transformation chain in order over one transaction's
// newly parsed files: flatten, fix timestamps, enrich, resolve
// parameters, calculate, score. It never returns a PipelineError for
// per-row conditions (those become quality flags); stage failures that do
// abort the run are reserved for structurally impossible states.
func Run(parsed []*schema.ParsedFile, ec *ExecutionContext) (*Result, error) {
	var flat []schema.Observation
	for _, pf := range parsed {
		flat = append(flat, Flatten(pf)...)
	}
	if len(flat) == 0 {
		return &Result{}, nil
	}

	fixed, skipped := FixTimestamps(flat, ec)
	for _, sc := range skipped {
		log.Warnf("pipeline: dropped chunk logger=%s signature=%s rows=%d: %s",
			sc.LoggerID, sc.Signature, sc.RowCount, sc.Reason)
	}
	if len(fixed) == 0 {
		return &Result{Skipped: skipped}, nil
	}

	enriched := Enrich(fixed, ec)
	ResolveParameters(enriched, ec)
	Calculate(enriched)
	Score(enriched, ec)

	return &Result{Observations: enriched, Skipped: skipped}, nil
}
