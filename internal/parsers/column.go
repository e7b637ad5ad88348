// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// ColumnKind classifies one data column of a TOA5-style export.
type ColumnKind int

const (
	ColTimestamp ColumnKind = iota
	ColRecord
	ColBatteryVoltage
	ColPanelTemperature
	ColLoggerID
	ColSensorAddress
	ColSensorMetric
	ColThermistorMetric
)

// Column describes one classified data column: its kind plus, where
// applicable, the SDI-12 address, thermistor depth, and metric name it
// carries.
type Column struct {
	Kind   ColumnKind
	Addr   string
	Depth  schema.Depth
	Metric string
}

func tsCol() Column                  { return Column{Kind: ColTimestamp} }
func recCol() Column                 { return Column{Kind: ColRecord} }
func battCol() Column                { return Column{Kind: ColBatteryVoltage} }
func panelCol() Column                { return Column{Kind: ColPanelTemperature} }
func loggerIDCol() Column            { return Column{Kind: ColLoggerID} }
func sensorAddrCol(addr string) Column { return Column{Kind: ColSensorAddress, Addr: addr} }

func sensorMetricCol(addr, metric string) Column {
	return Column{Kind: ColSensorMetric, Addr: addr, Metric: metric}
}

func thermMetricCol(addr string, depth schema.Depth, metric string) Column {
	return Column{Kind: ColThermistorMetric, Addr: addr, Depth: depth, Metric: metric}
}
