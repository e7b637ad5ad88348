// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fieldlab-science/sapfluxcore/pkg/log"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// SkippedChunk is reported back to the orchestrator for a chunk whose
// anchor matched no deployment: those rows are dropped from the output.
type SkippedChunk struct {
	LoggerID  string
	Signature string
	Anchor    time.Time
	RowCount  int
	Reason    string
}

// fileSetSignature sorts and '+'-joins a set of file hashes into the
// stable chunk-grouping key.
func fileSetSignature(hashes map[string]bool) string {
	list := make([]string, 0, len(hashes))
	for h := range hashes {
		list = append(list, h)
	}
	sort.Strings(list)
	return strings.Join(list, "+")
}

type recordKey struct {
	loggerID string
	record   int64
}

// FixTimestamps groups observations into (logger, contributing-file-hash
// set) chunks, resolves one UTC offset per chunk, and rewrites
// timestamp_utc/utc_offset_seconds/file_set_signature on every row in
// matched chunks. Rows belonging to an unresolvable chunk are dropped and
// reported as a SkippedChunk.
func FixTimestamps(obs []schema.Observation, ec *ExecutionContext) ([]schema.Observation, []SkippedChunk) {
	if len(obs) == 0 {
		return obs, nil
	}

	hashesByRecord := map[recordKey]map[string]bool{}
	for _, o := range obs {
		key := recordKey{o.LoggerID, o.Record}
		if hashesByRecord[key] == nil {
			hashesByRecord[key] = map[string]bool{}
		}
		hashesByRecord[key][o.FileHash] = true
	}

	sigByRecord := map[recordKey]string{}
	for key, hashes := range hashesByRecord {
		sigByRecord[key] = fileSetSignature(hashes)
	}

	// Group consecutive records (per logger, sorted by record) with an
	// identical file-set signature into one chunk.
	byLogger := map[string][]int64{}
	recordSeen := map[recordKey]bool{}
	for _, o := range obs {
		key := recordKey{o.LoggerID, o.Record}
		if recordSeen[key] {
			continue
		}
		recordSeen[key] = true
		byLogger[o.LoggerID] = append(byLogger[o.LoggerID], o.Record)
	}

	type chunk struct {
		loggerID  string
		signature string
		records   map[int64]bool
		anchor    int64 // minimum record in the chunk
	}
	var chunks []*chunk

	for loggerID, records := range byLogger {
		sort.Slice(records, func(i, j int) bool { return records[i] < records[j] })
		var cur *chunk
		for _, rec := range records {
			sig := sigByRecord[recordKey{loggerID, rec}]
			if cur == nil || cur.signature != sig {
				cur = &chunk{loggerID: loggerID, signature: sig, records: map[int64]bool{}, anchor: rec}
				chunks = append(chunks, cur)
			}
			cur.records[rec] = true
		}
	}

	chunkFor := map[recordKey]*chunk{}
	for _, c := range chunks {
		for rec := range c.records {
			chunkFor[recordKey{c.loggerID, rec}] = c
		}
	}

	// Resolve each chunk's anchor timestamp once.
	type resolution struct {
		offsetSeconds int
		anchorTime    time.Time
		ok            bool
		reason        string
	}
	resByChunk := map[*chunk]resolution{}

	anchorLocal := map[*chunk]time.Time{}
	for _, o := range obs {
		c := chunkFor[recordKey{o.LoggerID, o.Record}]
		if c == nil || c.anchor != o.Record {
			continue
		}
		if _, ok := anchorLocal[c]; !ok {
			anchorLocal[c] = o.RawLocalTimestamp
		}
	}

	for _, c := range chunks {
		anchor, ok := anchorLocal[c]
		if !ok {
			resByChunk[c] = resolution{ok: false, reason: "no anchor row observed"}
			continue
		}
		ds := ec.deploymentsForLogger(c.loggerID)
		dep := deploymentForNaiveAnchor(ds, anchor)
		if dep == nil {
			resByChunk[c] = resolution{ok: false, reason: "no deployment matches chunk anchor"}
			continue
		}
		loc, err := time.LoadLocation(dep.SiteTimezone)
		if err != nil {
			resByChunk[c] = resolution{ok: false, reason: fmt.Sprintf("unknown timezone %q", dep.SiteTimezone)}
			continue
		}
		utc, offset := resolveAmbiguousLocal(anchor, loc)
		resByChunk[c] = resolution{offsetSeconds: offset, anchorTime: utc, ok: true}
	}

	out := make([]schema.Observation, 0, len(obs))
	var skipped []SkippedChunk
	reportedSkip := map[*chunk]bool{}

	for _, o := range obs {
		c := chunkFor[recordKey{o.LoggerID, o.Record}]
		res := resByChunk[c]
		if !res.ok {
			if !reportedSkip[c] {
				reportedSkip[c] = true
				anchor := anchorLocal[c]
				skipped = append(skipped, SkippedChunk{
					LoggerID: c.loggerID, Signature: c.signature, Anchor: anchor,
					RowCount: len(c.records), Reason: res.reason,
				})
				log.Warnf("timestampfix: dropping chunk logger=%s signature=%s: %s", c.loggerID, c.signature, res.reason)
			}
			continue
		}

		offsetDur := time.Duration(res.offsetSeconds) * time.Second
		o.TimestampUTC = o.RawLocalTimestamp.Add(-offsetDur).UTC()
		o.UTCOffsetSeconds = res.offsetSeconds
		o.FileSetSignature = c.signature
		out = append(out, o)
	}

	return out, skipped
}

// deploymentForNaiveAnchor finds the first deployment (of ds, any order)
// whose naive-local window contains the anchor, converting each
// deployment's UTC bounds to the site's local time for comparison.
func deploymentForNaiveAnchor(ds []Deployment, anchor time.Time) *Deployment {
	for i := range ds {
		d := &ds[i]
		loc, err := time.LoadLocation(d.SiteTimezone)
		if err != nil {
			continue
		}
		startLocal := d.StartUTC.In(loc)
		startNaive := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(),
			startLocal.Hour(), startLocal.Minute(), startLocal.Second(), startLocal.Nanosecond(), time.UTC)
		if anchor.Before(startNaive) {
			continue
		}
		if d.EndUTC != nil {
			endLocal := d.EndUTC.In(loc)
			endNaive := time.Date(endLocal.Year(), endLocal.Month(), endLocal.Day(),
				endLocal.Hour(), endLocal.Minute(), endLocal.Second(), endLocal.Nanosecond(), time.UTC)
			if !anchor.Before(endNaive) {
				continue
			}
		}
		return d
	}
	return nil
}

// offsetAt returns the UTC offset in effect an hour-scale lead away from a
// naive local wall clock reading: the reading is placed in loc and moved
// by lead as an instant, so the offset comes from the zone rules active
// shortly before or after it and is unaffected by whether this exact
// reading is ambiguous or nonexistent.
func offsetAt(naive time.Time, loc *time.Location, lead time.Duration) int {
	probe := time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), loc).Add(lead)
	_, offset := probe.Zone()
	return offset
}

// resolveAmbiguousLocal converts a naive local timestamp to UTC per the
// DST resolution rule. It takes the zone offsets shortly before and
// shortly after the naive reading and uses the later (post-transition)
// offset if the wall clock is valid under it, else the earlier one; so
// during the repeated (fall-back) hour the later offset is chosen. If the
// wall clock is valid under neither, it lies in the skipped
// (spring-forward) hour: the naive instant is shifted forward an hour,
// resolved against the post-transition offset there, and the hour is
// subtracted back out of the resulting UTC instant.
func resolveAmbiguousLocal(naive time.Time, loc *time.Location) (time.Time, int) {
	offsetBefore := offsetAt(naive, loc, -time.Hour)
	offsetAfter := offsetAt(naive, loc, time.Hour)

	for _, offset := range []int{offsetAfter, offsetBefore} {
		utc := naive.Add(-time.Duration(offset) * time.Second).UTC()
		if _, actual := utc.In(loc).Zone(); actual == offset {
			return utc, offset
		}
	}

	// Spring-forward: the hour does not exist. Shift forward an hour,
	// resolve against the unambiguous post-transition offset there, then
	// subtract the hour back out of the UTC result.
	shifted := naive.Add(time.Hour)
	utc := shifted.Add(-time.Duration(offsetAfter) * time.Second).UTC().Add(-time.Hour)
	return utc, offsetAfter
}
