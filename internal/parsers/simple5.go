// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import (
	"strings"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// Simple5Parser recognizes the "Simple5" export used by single-probe-depth
// deployments: one SDI-12 sensor reporting exactly five derived metrics
// (alpha, beta, time-to-max, and the up/downstream deltas) at a single,
// fixed outer depth, with no Logger_ID column. The logger_id is always
// derived from the station name in header row 1.
type Simple5Parser struct{}

func (p *Simple5Parser) Name() string { return "Simple5" }

var simple5Columns = []string{
	"TIMESTAMP", "RECORD", "BattV", "PTemp_C",
	"Alpha(1)", "Beta(1)", "tMaxT(1)", "dT_up(1)", "dT_down(1)",
}

var simple5Units = [][]string{
	{"TS"}, {"RN"}, {"Volts"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
}

func simple5Classify(name string) (Column, bool) {
	switch name {
	case "TIMESTAMP":
		return tsCol(), true
	case "RECORD":
		return recCol(), true
	case "BattV":
		return battCol(), true
	case "PTemp_C":
		return panelCol(), true
	}
	open := strings.IndexByte(name, '(')
	if open < 0 || !strings.HasSuffix(name, ")") {
		return Column{}, false
	}
	addr := name[open+1 : len(name)-1]
	if !isValidSDIAddress(addr) {
		return Column{}, false
	}
	switch name[:open] {
	case "Alpha":
		return thermMetricCol(addr, schema.DepthOuter, metricAlpha), true
	case "Beta":
		return thermMetricCol(addr, schema.DepthOuter, metricBeta), true
	case "tMaxT":
		return thermMetricCol(addr, schema.DepthOuter, metricTMaxDown), true
	case "dT_up":
		return thermMetricCol(addr, schema.DepthOuter, metricDeltaUp), true
	case "dT_down":
		return thermMetricCol(addr, schema.DepthOuter, metricDeltaDown), true
	}
	return Column{}, false
}

func (p *Simple5Parser) Parse(text string) (*schema.ParsedFile, *ParserError) {
	spec := formatSpec{
		name:                 p.Name(),
		tableName:            "Simple5",
		columnNames:          simple5Columns,
		unitsRow:             simple5Units,
		classify:             simple5Classify,
		requireUnitRecordGap: true,
	}
	return parseWithSpec(text, spec)
}
