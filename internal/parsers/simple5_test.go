// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

func simple5Fixture() string {
	rows := []string{
		`"TOA5","CR1000_77","CR1000","77","CR1000.Std.31","CPU:sapflow.cr1","1234","Simple5"`,
		`"TIMESTAMP","RECORD","BattV","PTemp_C","Alpha(1)","Beta(1)","tMaxT(1)","dT_up(1)","dT_down(1)"`,
		`"TS","RN","Volts","Deg C","cm/hr","cm/hr","sec","Deg C","Deg C"`,
		`"","","","","","","","",""`,
		`"2024-01-15 08:00:00","1","12.5","22.3","0.01","0.5","50","1.2","0.8"`,
		`"2024-01-15 08:15:00","2","12.4","22.1","0.02","0.6","48","1.3","0.9"`,
	}
	return strings.Join(rows, "\n") + "\n"
}

func TestSimple5ParserParsesValidFile(t *testing.T) {
	p := &Simple5Parser{}
	pf, err := p.Parse(simple5Fixture())
	require.Nil(t, err)
	require.NotNil(t, pf)

	assert.Equal(t, "CR1000_77", pf.Metadata.LoggerName)
	assert.Equal(t, "Simple5", pf.Metadata.TableName)
	require.Len(t, pf.Logger, 2)
	assert.Equal(t, "77", pf.Logger[0].LoggerID, "no Logger_ID column: derived from trailing digits of station name")
	assert.Equal(t, int64(1), pf.Logger[0].Record)
	assert.Equal(t, int64(2), pf.Logger[1].Record)
	require.NotNil(t, pf.Logger[0].BatteryVoltageV)
	assert.InDelta(t, 12.5, *pf.Logger[0].BatteryVoltageV, 1e-9)

	require.Len(t, pf.Sensors, 1)
	sensor := pf.Sensors[0]
	assert.Equal(t, "1", sensor.SDI12Address)
	require.Len(t, sensor.Pairs, 1)
	assert.Equal(t, schema.DepthOuter, sensor.Pairs[0].Depth)
	require.Len(t, sensor.Pairs[0].Rows, 2)
	require.NotNil(t, sensor.Pairs[0].Rows[0].Alpha)
	assert.InDelta(t, 0.01, *sensor.Pairs[0].Rows[0].Alpha, 1e-9)
	require.NotNil(t, sensor.Pairs[0].Rows[1].Beta)
	assert.InDelta(t, 0.6, *sensor.Pairs[0].Rows[1].Beta, 1e-9)
}

func TestSimple5ParserRejectsWrongTableNameAsFormatMismatch(t *testing.T) {
	p := &Simple5Parser{}
	text := strings.Replace(simple5Fixture(), `"Simple5"`, `"SomeOtherTable"`, 1)

	_, err := p.Parse(text)
	require.NotNil(t, err)
	assert.Equal(t, FormatMismatch, err.Kind)
}

func TestSimple5ParserTreatsSentinelNullsAsMissing(t *testing.T) {
	p := &Simple5Parser{}
	text := strings.Replace(simple5Fixture(),
		`"2024-01-15 08:00:00","1","12.5","22.3","0.01","0.5","50","1.2","0.8"`,
		`"2024-01-15 08:00:00","1","NAN","22.3","-99","0.5","50","1.2","0.8"`,
		1)

	pf, err := p.Parse(text)
	require.Nil(t, err)
	assert.Nil(t, pf.Logger[0].BatteryVoltageV)
	assert.Nil(t, pf.Sensors[0].Pairs[0].Rows[0].Alpha)
}

func TestSimple5ParserRejectsRecordGap(t *testing.T) {
	p := &Simple5Parser{}
	text := strings.Replace(simple5Fixture(),
		`"2024-01-15 08:15:00","2","12.4","22.1","0.02","0.6","48","1.3","0.9"`,
		`"2024-01-15 08:15:00","3","12.4","22.1","0.02","0.6","48","1.3","0.9"`,
		1)

	_, err := p.Parse(text)
	require.NotNil(t, err)
	assert.Equal(t, DataRow, err.Kind)
}

func TestSimple5ParserRejectsEmptyData(t *testing.T) {
	p := &Simple5Parser{}
	rows := strings.Split(strings.TrimRight(simple5Fixture(), "\n"), "\n")[:4]
	_, err := p.Parse(strings.Join(rows, "\n") + "\n")
	require.NotNil(t, err)
	assert.Equal(t, EmptyData, err.Kind)
}

func TestRegistryFallsThroughToSimple5(t *testing.T) {
	reg := NewRegistry()
	pf, err := reg.Parse(simple5Fixture())
	require.NoError(t, err)
	assert.Equal(t, "Simple5", pf.Metadata.TableName)
}

func TestRegistryAggregatesAttemptsWhenNothingMatches(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Parse("not,a,logger,export\n1,2,3,4\n")
	require.Error(t, err)

	nme, ok := err.(*NoMatchingParserError)
	require.True(t, ok)
	assert.Len(t, nme.Attempts, 5, "every registered parser should have been tried")
}
