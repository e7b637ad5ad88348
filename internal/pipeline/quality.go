// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"sort"
	"strings"
	"time"
)

const (
	ReasonTimestampBeforeDeployment      = "timestamp_before_deployment"
	ReasonTimestampBeforeFirstDeployment = "timestamp_before_first_deployment"
	ReasonTimestampAfterDeployment       = "timestamp_after_deployment"
	ReasonTimestampFuture                = "timestamp_future"
	ReasonRecordGap                      = "record_gap_gt_quality_gap_years"
	ReasonFluxAboveMax                   = "sap_flux_density_above_quality_max_flux_cm_hr"
	ReasonFluxBelowMin                   = "sap_flux_density_below_quality_min_flux_cm_hr"
)

// Score implements the per-row quality scoring. The "future timestamp"
// check compares against ec.Now, the execution context's load time, so
// the check is stable within one transaction.
func Score(obs []Observations, ec *ExecutionContext) {
	recordGapRows := recordGapReasons(obs, ec)

	for i := range obs {
		o := &obs[i]
		var reasons []string

		startGrace := time.Duration(o.Parameters[ParamStartGraceMinutes].AsFloat() * float64(time.Minute))
		endGrace := time.Duration(o.Parameters[ParamEndGraceMinutes].AsFloat() * float64(time.Minute))
		futureLead := time.Duration(o.Parameters[ParamFutureLeadMinutes].AsFloat() * float64(time.Minute))
		maxFlux := o.Parameters[ParamMaxFlux].AsFloat()
		minFlux := o.Parameters[ParamMinFlux].AsFloat()

		if o.Deployment != nil {
			if o.TimestampUTC.Before(o.Deployment.StartUTC.Add(-startGrace)) {
				reasons = append(reasons, ReasonTimestampBeforeDeployment)
			}
			end := ec.Now
			if o.Deployment.EndUTC != nil {
				end = *o.Deployment.EndUTC
			}
			if o.TimestampUTC.After(end.Add(endGrace)) {
				reasons = append(reasons, ReasonTimestampAfterDeployment)
			}
		} else if earliest, ok := earliestDeploymentStart(ec, o.LoggerID, o.SDI12Address); ok && o.TimestampUTC.Before(earliest) {
			reasons = append(reasons, ReasonTimestampBeforeFirstDeployment)
		}

		if o.TimestampUTC.After(ec.Now.Add(futureLead)) {
			reasons = append(reasons, ReasonTimestampFuture)
		}

		if recordGapRows[recordKey{o.LoggerID, o.Record}] {
			reasons = append(reasons, ReasonRecordGap)
		}

		if o.SapFluxDensityJDMACmHr != nil {
			if *o.SapFluxDensityJDMACmHr > maxFlux {
				reasons = append(reasons, ReasonFluxAboveMax)
			}
			if *o.SapFluxDensityJDMACmHr < minFlux {
				reasons = append(reasons, ReasonFluxBelowMin)
			}
		}

		if len(reasons) > 0 {
			quality := "SUSPECT"
			explanation := strings.Join(reasons, "|")
			o.Quality = &quality
			o.QualityExplanation = &explanation
		}
	}
}

func earliestDeploymentStart(ec *ExecutionContext, loggerID, sdi string) (time.Time, bool) {
	ds := ec.deploymentsFor(loggerID, sdi)
	if len(ds) == 0 {
		return time.Time{}, false
	}
	earliest := ds[0].StartUTC
	for _, d := range ds[1:] {
		if d.StartUTC.Before(earliest) {
			earliest = d.StartUTC
		}
	}
	return earliest, true
}

// recordGapReasons flags every (logger, record) whose timestamp_utc jumps
// by more than gap_years years from the immediately preceding record on
// the same logger, sorted by record.
func recordGapReasons(obs []Observations, ec *ExecutionContext) map[recordKey]bool {
	type rt struct {
		record int64
		ts     time.Time
	}
	byLogger := map[string][]rt{}
	seen := map[recordKey]bool{}
	for _, o := range obs {
		key := recordKey{o.LoggerID, o.Record}
		if seen[key] {
			continue
		}
		seen[key] = true
		byLogger[o.LoggerID] = append(byLogger[o.LoggerID], rt{o.Record, o.TimestampUTC})
	}

	flagged := map[recordKey]bool{}
	gapYears := defaultGapYears(ec)
	for loggerID, rows := range byLogger {
		sort.Slice(rows, func(i, j int) bool { return rows[i].record < rows[j].record })
		for i := 1; i < len(rows); i++ {
			gap := rows[i].ts.Sub(rows[i-1].ts)
			if gap.Hours() > gapYears*365.25*24 {
				flagged[recordKey{loggerID, rows[i].record}] = true
			}
		}
	}
	return flagged
}

// defaultGapYears reads gap_years off the catalog default, since the
// per-row resolved value is scoped per observation and the gap check
// compares across rows; using the unresolved default keeps the check
// well-defined even when different rows resolve the parameter
// differently.
func defaultGapYears(ec *ExecutionContext) float64 {
	for _, def := range ec.Parameters {
		if def.Code == ParamGapYears {
			return def.Default.AsFloat()
		}
	}
	return 2
}
