// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// SapFlowAllParser recognizes the current-generation "SapFlowAll" export:
// two SDI-12 addressed heat-ratio sensors, each reporting a full thermistor
// pair (inner/outer depth) with both the up/downstream pre/post/delta
// temperatures and the time-to-max metric, plus an explicit Logger_ID
// column. This is the most complete and most common format, so it is tried
// first.
type SapFlowAllParser struct{}

func (p *SapFlowAllParser) Name() string { return "SapFlowAll" }

var sapFlowAllMetrics = metricNames{
	"Alpha": metricAlpha,
	"Beta":  metricBeta,
	"tMaxT": metricTMaxDown,
	"Tpre":  metricPreUp,
	"Tpost": metricPostUp,
	"dT":    metricDeltaUp,
}

var sapFlowAllColumns = []string{
	"TIMESTAMP", "RECORD", "Logger_ID", "BattV", "PTemp_C",
	"Alpha_in(1)", "Beta_in(1)", "tMaxT_in(1)",
	"Tpre_in(1)", "Tpost_in(1)", "dT_in(1)",
	"Alpha_out(1)", "Beta_out(1)", "tMaxT_out(1)",
	"Tpre_out(1)", "Tpost_out(1)", "dT_out(1)",
	"Alpha_in(2)", "Beta_in(2)", "tMaxT_in(2)",
	"Tpre_in(2)", "Tpost_in(2)", "dT_in(2)",
	"Alpha_out(2)", "Beta_out(2)", "tMaxT_out(2)",
	"Tpre_out(2)", "Tpost_out(2)", "dT_out(2)",
}

var sapFlowAllUnits = [][]string{
	{"TS"}, {"RN"}, {""},
	{"Volts"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
}

func (p *SapFlowAllParser) Parse(text string) (*schema.ParsedFile, *ParserError) {
	spec := formatSpec{
		name:                 p.Name(),
		tableName:            "SapFlowAll",
		columnNames:          sapFlowAllColumns,
		unitsRow:             sapFlowAllUnits,
		classify:             func(name string) (Column, bool) { return classifyByToken(name, sapFlowAllMetrics) },
		requireUnitRecordGap: true,
	}
	return parseWithSpec(text, spec)
}
