// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import (
	"strconv"
	"strings"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// metricNames maps a format's header-row metric token (e.g. "Alpha",
// "tMaxT", "dT") to the canonical ThermistorMetrics field it fills.
type metricNames map[string]string // header token -> canonical metric key

const (
	metricAlpha        = "alpha"
	metricBeta         = "beta"
	metricTMaxDown     = "tmax_down"
	metricPreUp        = "pre_up"
	metricPostUp       = "post_up"
	metricDeltaUp      = "delta_up"
	metricPreDown      = "pre_down"
	metricPostDown     = "post_down"
	metricDeltaDown    = "delta_down"
)

// formatSpec is the data a concrete parser supplies to the shared engine:
// everything that varies between the five formats.
type formatSpec struct {
	name string

	// header row templates for validation.
	tableName       string
	unitsRow        [][]string // accepted unit spellings per column, nil to skip the check
	charCodes       []string   // row 4 characteristic codes, nil to skip the check

	// header row 2 column names, in order, and how each maps to a Column.
	columnNames []string
	classify    func(name string) (Column, bool)

	// row policy.
	allowShortRows      bool // silently skip rows with fewer than expected fields (HX legacy)
	skipBadSDIAddrRows  bool // silently skip rows whose inline SDI address fails validation
	requireUnitRecordGap bool // require record to increment by exactly 1 (false for both legacy gap-tolerant formats)
	legacyLoggerIDSentinel bool // "1" in the logger_id column means "absent, inherit from header"
}

// inAddrToken and outAddrToken are the depth tokens embedded in header names,
// e.g. "Alpha_in(1)" / "Alpha_out(1)".
const (
	inAddrToken  = "in"
	outAddrToken = "out"
)

// classifyByToken builds a Column from a parenthesized header token
// "<Metric>_<depth>(<addr>)" or "<Metric>(<addr>)" or a fixed logger column
// name, using the supplied metricNames synonym table.
func classifyByToken(name string, metrics metricNames) (Column, bool) {
	switch name {
	case "TIMESTAMP":
		return tsCol(), true
	case "RECORD":
		return recCol(), true
	case "BattV", "Batt_Volt":
		return battCol(), true
	case "PTemp_C", "PTemp":
		return panelCol(), true
	case "Logger_ID":
		return loggerIDCol(), true
	}

	open := strings.IndexByte(name, '(')
	if open < 0 || !strings.HasSuffix(name, ")") {
		return Column{}, false
	}
	addr := name[open+1 : len(name)-1]
	if len(addr) != 1 {
		return Column{}, false
	}
	base := name[:open]

	if depthIdx := strings.LastIndexByte(base, '_'); depthIdx >= 0 {
		metricTok, depthTok := base[:depthIdx], base[depthIdx+1:]
		var depth schema.Depth
		switch depthTok {
		case inAddrToken:
			depth = schema.DepthInner
		case outAddrToken:
			depth = schema.DepthOuter
		default:
			// Not a depth suffix; treat the whole base as the metric token
			// of a sensor-level (non-thermistor) column instead.
			if canon, ok := metrics[base]; ok {
				return sensorMetricCol(addr, canon), true
			}
			return Column{}, false
		}
		if canon, ok := metrics[metricTok]; ok {
			return thermMetricCol(addr, depth, canon), true
		}
		return Column{}, false
	}

	if canon, ok := metrics[base]; ok {
		return sensorMetricCol(addr, canon), true
	}
	return Column{}, false
}

// isValidSDIAddress reports whether an inline SDI-12 address token is a
// single alphanumeric character.
func isValidSDIAddress(addr string) bool {
	if len(addr) != 1 {
		return false
	}
	c := addr[0]
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseWithSpec implements the shared TOA5 parsing engine: validate the
// four header rows, classify data columns, iterate data rows building a
// LoggerTable and per-(address,depth) ThermistorPairTables.
func parseWithSpec(text string, spec formatSpec) (*schema.ParsedFile, *ParserError) {
	rows, err := splitCSVLines(text)
	if err != nil {
		return nil, err
	}
	if len(rows) < 4 {
		return nil, mismatch("fewer than 4 header rows")
	}

	meta, herr := parseHeaderRow1(rows[0])
	if herr != nil {
		return nil, herr
	}
	if !strings.EqualFold(meta.TableName, spec.tableName) {
		return nil, mismatch("table name %q does not match %s", meta.TableName, spec.tableName)
	}

	if herr := columnHeaderTemplate(2, rows[1], spec.columnNames); herr != nil {
		return nil, herr
	}
	if spec.unitsRow != nil {
		if herr := unitsTemplate(3, rows[2], spec.unitsRow); herr != nil {
			return nil, herr
		}
	}
	if spec.charCodes != nil {
		if herr := columnHeaderTemplate(4, rows[3], spec.charCodes); herr != nil {
			return nil, herr
		}
	}

	columns := make([]Column, len(spec.columnNames))
	for i, name := range spec.columnNames {
		col, ok := spec.classify(name)
		if !ok {
			return nil, invalidHeader(2, "unrecognized column name %q", name)
		}
		columns[i] = col
	}

	dataRows := rows[4:]
	if len(dataRows) == 0 {
		return nil, emptyData()
	}

	type pairKey struct {
		addr  string
		depth schema.Depth
	}
	pairs := map[pairKey]*schema.ThermistorPairTable{}
	var pairOrder []pairKey
	sensorMetrics := map[string]map[string][]*float64{} // addr -> metric -> values
	var addrOrder []string
	seenAddr := map[string]bool{}

	var logger schema.LoggerTable
	var loggerIDFromCol string
	loggerIDColSeen := false
	var lastRecord *int64

	rowIdx := 0
	for _, fields := range dataRows {
		rowIdx++
		if len(fields) != len(columns) {
			if spec.allowShortRows && len(fields) < len(columns) {
				continue
			}
			return nil, dataRowErr(rowIdx+4, "expected %d fields, got %d", len(columns), len(fields))
		}

		var lrow schema.LoggerRow
		thisRowPairs := map[pairKey]schema.ThermistorMetrics{}
		badAddr := false

		for i, col := range columns {
			raw := fields[i]
			switch col.Kind {
			case ColTimestamp:
				t, terr := parseTimestamp(raw)
				if terr != nil {
					return nil, dataRowErr(rowIdx+4, "%s", terr.Message)
				}
				lrow.Timestamp = t
			case ColRecord:
				n, nerr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
				if nerr != nil {
					return nil, dataRowErr(rowIdx+4, "invalid record number %q", raw)
				}
				lrow.Record = n
			case ColBatteryVoltage:
				v, ferr := parseNullableFloat(raw)
				if ferr != nil {
					return nil, dataRowErr(rowIdx+4, "%s", ferr.Message)
				}
				lrow.BatteryVoltageV = v
			case ColPanelTemperature:
				v, ferr := parseNullableFloat(raw)
				if ferr != nil {
					return nil, dataRowErr(rowIdx+4, "%s", ferr.Message)
				}
				lrow.PanelTemperatureC = v
			case ColLoggerID:
				loggerIDColSeen = true
				trimmed := strings.TrimSpace(raw)
				if spec.legacyLoggerIDSentinel && trimmed == "1" {
					// Treated as absent; inherit from header.
				} else if trimmed != "" {
					if loggerIDFromCol != "" && loggerIDFromCol != trimmed {
						return nil, dataRowErr(rowIdx+4, "logger_id changed from %q to %q mid-file", loggerIDFromCol, trimmed)
					}
					loggerIDFromCol = trimmed
				}
			case ColSensorAddress:
				if spec.skipBadSDIAddrRows && !isValidSDIAddress(raw) {
					badAddr = true
				}
				if !seenAddr[col.Addr] {
					seenAddr[col.Addr] = true
					addrOrder = append(addrOrder, col.Addr)
				}
			case ColSensorMetric:
				v, ferr := parseNullableFloat(raw)
				if ferr != nil {
					return nil, dataRowErr(rowIdx+4, "%s", ferr.Message)
				}
				if sensorMetrics[col.Addr] == nil {
					sensorMetrics[col.Addr] = map[string][]*float64{}
				}
				sensorMetrics[col.Addr][col.Metric] = append(sensorMetrics[col.Addr][col.Metric], v)
				if !seenAddr[col.Addr] {
					seenAddr[col.Addr] = true
					addrOrder = append(addrOrder, col.Addr)
				}
			case ColThermistorMetric:
				v, ferr := parseNullableFloat(raw)
				if ferr != nil {
					return nil, dataRowErr(rowIdx+4, "%s", ferr.Message)
				}
				key := pairKey{addr: col.Addr, depth: col.Depth}
				m := thisRowPairs[key]
				setMetric(&m, col.Metric, v)
				thisRowPairs[key] = m
				if !seenAddr[col.Addr] {
					seenAddr[col.Addr] = true
					addrOrder = append(addrOrder, col.Addr)
				}
			}
		}

		if badAddr {
			continue
		}

		if lastRecord != nil {
			if lrow.Record <= *lastRecord {
				return nil, dataRowErr(rowIdx+4, "record %d is not strictly increasing after %d", lrow.Record, *lastRecord)
			}
			if spec.requireUnitRecordGap && lrow.Record != *lastRecord+1 {
				return nil, dataRowErr(rowIdx+4, "record gap: %d -> %d", *lastRecord, lrow.Record)
			}
		}
		rec := lrow.Record
		lastRecord = &rec

		logger = append(logger, lrow)

		for key, m := range thisRowPairs {
			if pairs[key] == nil {
				pairs[key] = &schema.ThermistorPairTable{Depth: key.depth}
				pairOrder = append(pairOrder, key)
			}
			pairs[key].Rows = append(pairs[key].Rows, m)
		}
		// Backfill any pair tables that existed from a previous row but
		// were not present on this row with a null row, preserving the
		// 1:1 row-count invariant with the logger table.
		for _, key := range pairOrder {
			if _, ok := thisRowPairs[key]; !ok {
				pairs[key].Rows = append(pairs[key].Rows, schema.ThermistorMetrics{})
			}
		}
	}

	if len(logger) == 0 {
		return nil, emptyData()
	}

	loggerID := loggerIDFromCol
	if loggerID == "" {
		loggerID = deriveLoggerIDFromName(meta.LoggerName)
	}
	for i := range logger {
		logger[i].LoggerID = loggerID
	}
	_ = loggerIDColSeen

	sensors := make([]schema.SensorRecord, 0, len(addrOrder))
	for _, addr := range addrOrder {
		rec := schema.SensorRecord{SDI12Address: addr}
		if sm, ok := sensorMetrics[addr]; ok && len(sm) > 0 {
			rec.Sensor = &schema.SensorMetrics{Rows: sm}
		}
		for _, key := range pairOrder {
			if key.addr != addr {
				continue
			}
			rec.Pairs = append(rec.Pairs, *pairs[key])
		}
		sensors = append(sensors, rec)
	}

	return &schema.ParsedFile{
		RawText:  text,
		Metadata: meta,
		Logger:   logger,
		Sensors:  sensors,
	}, nil
}

func setMetric(m *schema.ThermistorMetrics, canon string, v *float64) {
	switch canon {
	case metricAlpha:
		m.Alpha = v
	case metricBeta:
		m.Beta = v
	case metricTMaxDown:
		m.TimeToMaxTempDownstreamS = v
	case metricPreUp:
		m.TempPreUpstreamC = v
	case metricPostUp:
		m.TempPostUpstreamC = v
	case metricDeltaUp:
		m.TempDeltaUpstreamC = v
	case metricPreDown:
		m.TempPreDownstreamC = v
	case metricPostDown:
		m.TempPostDownstreamC = v
	case metricDeltaDown:
		m.TempDeltaDownstreamC = v
	}
}
