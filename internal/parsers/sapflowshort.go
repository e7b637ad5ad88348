// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// SapFlowShortParser recognizes the abbreviated "SapFlowShort" export: the
// same two-sensor, two-depth layout as SapFlowAll, but with only the
// derived alpha/beta/time-to-max metrics and the delta temperatures,
// omitting the raw pre/post temperature readings to save storage on
// memory-constrained dataloggers.
type SapFlowShortParser struct{}

func (p *SapFlowShortParser) Name() string { return "SapFlowShort" }

var sapFlowShortMetrics = metricNames{
	"Alpha": metricAlpha,
	"Beta":  metricBeta,
	"tMaxT": metricTMaxDown,
	"dT":    metricDeltaUp,
}

var sapFlowShortColumns = []string{
	"TIMESTAMP", "RECORD", "Logger_ID", "BattV", "PTemp_C",
	"Alpha_in(1)", "Beta_in(1)", "tMaxT_in(1)", "dT_in(1)",
	"Alpha_out(1)", "Beta_out(1)", "tMaxT_out(1)", "dT_out(1)",
	"Alpha_in(2)", "Beta_in(2)", "tMaxT_in(2)", "dT_in(2)",
	"Alpha_out(2)", "Beta_out(2)", "tMaxT_out(2)", "dT_out(2)",
}

var sapFlowShortUnits = [][]string{
	{"TS"}, {"RN"}, {""},
	{"Volts"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"},
}

func (p *SapFlowShortParser) Parse(text string) (*schema.ParsedFile, *ParserError) {
	spec := formatSpec{
		name:                 p.Name(),
		tableName:            "SapFlowShort",
		columnNames:          sapFlowShortColumns,
		unitsRow:             sapFlowShortUnits,
		classify:             func(name string) (Column, bool) { return classifyByToken(name, sapFlowShortMetrics) },
		requireUnitRecordGap: true,
	}
	return parseWithSpec(text, spec)
}
