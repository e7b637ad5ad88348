// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// LegacyHXParser recognizes the older "HXSapFlow" export from first-
// generation HX-series dataloggers. Two quirks distinguish it from the
// modern formats: a firmware bug occasionally truncates a logged row mid
// write, which this parser silently skips rather than rejecting the whole
// file, and the Logger_ID column carries the constant sentinel "1" on
// loggers that were never assigned a real id, in which case the logger id
// is inherited from the station name in header row 1 instead.
type LegacyHXParser struct{}

func (p *LegacyHXParser) Name() string { return "HXSapFlow" }

var legacyHXMetrics = metricNames{
	"Alpha": metricAlpha,
	"Beta":  metricBeta,
	"tMaxT": metricTMaxDown,
	"Tpre":  metricPreUp,
	"Tpost": metricPostUp,
	"dT":    metricDeltaUp,
}

var legacyHXColumns = []string{
	"TIMESTAMP", "RECORD", "Logger_ID", "BattV", "PTemp_C",
	"Alpha_in(1)", "Beta_in(1)", "tMaxT_in(1)",
	"Tpre_in(1)", "Tpost_in(1)", "dT_in(1)",
	"Alpha_out(1)", "Beta_out(1)", "tMaxT_out(1)",
	"Tpre_out(1)", "Tpost_out(1)", "dT_out(1)",
}

var legacyHXUnits = [][]string{
	{"TS"}, {"RN"}, {""},
	{"Volts"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
}

func (p *LegacyHXParser) Parse(text string) (*schema.ParsedFile, *ParserError) {
	spec := formatSpec{
		name:                   p.Name(),
		tableName:              "HXSapFlow",
		columnNames:            legacyHXColumns,
		unitsRow:               legacyHXUnits,
		classify:               func(name string) (Column, bool) { return classifyByToken(name, legacyHXMetrics) },
		allowShortRows:         true,
		legacyLoggerIDSentinel: true,
		requireUnitRecordGap:   false,
	}
	return parseWithSpec(text, spec)
}
