// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schema holds the canonical in-memory shapes produced by the parser
// registry and carried through the transformation pipeline. Every parser,
// regardless of source format, must produce a ParsedFile with exactly these
// shapes; downstream pipeline stages never special-case the originating
// format.
package schema

import "time"

// Depth identifies which of the two thermistor probes in a pair a metric
// table belongs to.
type Depth string

const (
	DepthInner Depth = "inner"
	DepthOuter Depth = "outer"
)

// FileMetadata carries the four TOA5-style header rows that identify which
// datalogger produced a file and with what firmware/program.
type FileMetadata struct {
	LoggerModel    string
	LoggerName     string
	LoggerSerial   string
	OSVersion      string
	ProgramName    string
	ProgramSig     string
	TableName      string
}

// LoggerRow is one row of the per-file logger table: the columns every
// parser must emit regardless of format.
type LoggerRow struct {
	Timestamp          time.Time // naive, microsecond resolution, no timezone
	Record             int64
	BatteryVoltageV    *float64
	PanelTemperatureC  *float64
	LoggerID           string
}

// LoggerTable is the ordered, strictly-record-increasing set of LoggerRows
// for one parsed file.
type LoggerTable []LoggerRow

// ThermistorMetrics is one row of a thermistor-pair table. Missing metrics
// are nil, never omitted: every parser populates the same column set.
type ThermistorMetrics struct {
	Alpha                     *float64
	Beta                      *float64
	TimeToMaxTempDownstreamS  *float64
	TempPreUpstreamC          *float64
	TempPostUpstreamC         *float64
	TempDeltaUpstreamC        *float64
	TempPreDownstreamC        *float64
	TempPostDownstreamC       *float64
	TempDeltaDownstreamC      *float64
}

// ThermistorPairTable holds one row per logger record for a single
// (sdi12 address, depth) pair. Row count and ordering always match the
// file's LoggerTable.
type ThermistorPairTable struct {
	Depth Depth
	Rows  []ThermistorMetrics
}

// SensorMetrics is an optional sensor-level (not per-thermistor-pair) row,
// present for formats that report a whole-sensor reading alongside the
// per-depth thermistor pairs.
type SensorMetrics struct {
	Rows map[string][]*float64 // metric name -> per-record values
}

// SensorRecord groups everything reported for one SDI-12 address: an
// optional sensor-level table and the ordered thermistor pairs (one per
// depth actually present in the source file).
type SensorRecord struct {
	SDI12Address string
	Sensor       *SensorMetrics
	Pairs        []ThermistorPairTable
}

// ParsedFile is the canonical shape every parser produces, identical
// regardless of which of the five source formats was recognized.
type ParsedFile struct {
	FileHash string // assigned by the ingestion batcher after a successful parse
	RawText  string
	Metadata FileMetadata
	Logger   LoggerTable
	Sensors  []SensorRecord
}

// FixedLoggerColumns is the invariant column set every parser must emit for
// the logger table.
var FixedLoggerColumns = []string{
	"timestamp", "record", "battery_voltage_v", "panel_temperature_c", "logger_id",
}

// FixedThermistorColumns is the invariant column set every thermistor-pair
// table must emit.
var FixedThermistorColumns = []string{
	"alpha", "beta", "time_to_max_temp_downstream_s",
	"temp_pre_upstream_c", "temp_post_upstream_c", "temp_delta_upstream_c",
	"temp_pre_downstream_c", "temp_post_downstream_c", "temp_delta_downstream_c",
}

// Observation is one flattened row keyed by (logger_id, record, sdi12_address, depth),
// carrying all logger columns plus one thermistor pair's metrics plus file
// provenance. Produced by the flattener and enriched in place by every
// later pipeline stage.
type Observation struct {
	LoggerID     string
	Record       int64
	SDI12Address string
	Depth        Depth

	// Raw/local time, preserved for audit even after correction.
	RawLocalTimestamp time.Time
	BatteryVoltageV   *float64
	PanelTemperatureC *float64

	ThermistorMetrics

	FileHash string

	// Populated by the timestamp fixer.
	TimestampUTC      time.Time
	UTCOffsetSeconds  int
	FileSetSignature  string

	// Populated by the metadata enricher.
	DeploymentID          *string
	ProjectID             *string
	ProjectCode           *string
	ProjectName           *string
	SiteID                *string
	SiteCode              *string
	SiteName              *string
	ZoneID                *string
	ZoneName              *string
	PlotID                *string
	PlotName              *string
	PlantID               *string
	PlantCode             *string
	SpeciesID             *string
	SpeciesCode           *string
	SpeciesScientificName *string
	StemID                *string
	StemCode              *string
	InstallationMetadata  map[string]string

	// Populated by the parameter resolver: parameter code -> resolved value
	// plus parameter code -> provenance ("default" or the matched scope).
	Parameters         map[string]ParameterValue
	ParameterSources   map[string]string

	// Populated by the calculator.
	VhHRMCmHr               *float64
	VhTmaxCmHr              *float64
	VcHRMCmHr               *float64
	VcTmaxCmHr              *float64
	JHRMCmHr                *float64
	JTmaxCmHr               *float64
	CalculationMethodUsed   string // "HRM" or "Tmax"
	SapFluxDensityJDMACmHr  *float64

	// Populated by the quality scorer.
	Quality            *string // "OK" or "SUSPECT"; nil when no reasons fired
	QualityExplanation *string // pipe-joined reason codes
}

// ParameterKind identifies the scalar type of a resolved parameter value.
type ParameterKind string

const (
	ParamFloat  ParameterKind = "float"
	ParamInt    ParameterKind = "int"
	ParamBool   ParameterKind = "bool"
	ParamString ParameterKind = "string"
)

// ParameterValue is a typed parameter value; exactly one field is set
// according to Kind.
type ParameterValue struct {
	Kind   ParameterKind
	Float  float64
	Int    int64
	Bool   bool
	String string
}

// AsFloat returns the numeric interpretation of the value for Float/Int
// kinds, panicking (programmer error) for Bool/String, which callers must
// not mistake for numeric parameters.
func (v ParameterValue) AsFloat() float64 {
	switch v.Kind {
	case ParamFloat:
		return v.Float
	case ParamInt:
		return float64(v.Int)
	default:
		panic("schema: AsFloat called on non-numeric ParameterValue")
	}
}
