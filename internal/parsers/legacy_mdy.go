// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// LegacyMDYParser recognizes the oldest surviving export, "MDYSapFlow",
// named for its slash-delimited month/day/year timestamp with no seconds
// field. It is tried last because its header template is the loosest of
// the five. Its dataloggers occasionally logged a corrupted SDI-12 address
// byte for the whole row; such rows are silently dropped rather than
// failing the file, since the reading itself is still usable once the
// address column is known-good on later rows.
type LegacyMDYParser struct{}

func (p *LegacyMDYParser) Name() string { return "MDYSapFlow" }

var legacyMDYMetrics = metricNames{
	"Alpha": metricAlpha,
	"Beta":  metricBeta,
	"tMaxT": metricTMaxDown,
	"Tpre":  metricPreUp,
	"Tpost": metricPostUp,
	"dT":    metricDeltaUp,
}

var legacyMDYColumns = []string{
	"TIMESTAMP", "RECORD", "BattV", "PTemp_C", "SDI_Addr(1)",
	"Alpha_in(1)", "Beta_in(1)", "tMaxT_in(1)",
	"Tpre_in(1)", "Tpost_in(1)", "dT_in(1)",
	"Alpha_out(1)", "Beta_out(1)", "tMaxT_out(1)",
	"Tpre_out(1)", "Tpost_out(1)", "dT_out(1)",
}

var legacyMDYUnits = [][]string{
	{"TS"}, {"RN"}, {"Volts"}, {"Deg C", "Deg_C"}, {""},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
	{"cm/hr"}, {"cm/hr"}, {"sec"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"}, {"Deg C", "Deg_C"},
}

func legacyMDYClassify(name string) (Column, bool) {
	if name == "SDI_Addr(1)" {
		return sensorAddrCol("1"), true
	}
	return classifyByToken(name, legacyMDYMetrics)
}

func (p *LegacyMDYParser) Parse(text string) (*schema.ParsedFile, *ParserError) {
	spec := formatSpec{
		name:                 p.Name(),
		tableName:            "MDYSapFlow",
		columnNames:          legacyMDYColumns,
		unitsRow:             legacyMDYUnits,
		classify:             legacyMDYClassify,
		skipBadSDIAddrRows:   true,
		requireUnitRecordGap: false,
	}
	return parseWithSpec(text, spec)
}
