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

func sapFlowShortFixture() string {
	rows := []string{
		`"TOA5","CR1000_420","CR1000","420","CR1000.Std.31","CPU:sapflow.cr1","1234","SapFlowShort"`,
		`"TIMESTAMP","RECORD","Logger_ID","BattV","PTemp_C","Alpha_in(1)","Beta_in(1)","tMaxT_in(1)","dT_in(1)","Alpha_out(1)","Beta_out(1)","tMaxT_out(1)","dT_out(1)","Alpha_in(2)","Beta_in(2)","tMaxT_in(2)","dT_in(2)","Alpha_out(2)","Beta_out(2)","tMaxT_out(2)","dT_out(2)"`,
		`"TS","RN","","Volts","Deg C","cm/hr","cm/hr","sec","Deg C","cm/hr","cm/hr","sec","Deg C","cm/hr","cm/hr","sec","Deg C","cm/hr","cm/hr","sec","Deg C"`,
		`"","","","","","","","","","","","","","","","","","","","",""`,
		`"2024-01-15 08:00:00","1","420","12.5","22.3","0.01","0.5","50","1.2","0.02","0.6","48","1.3","0.03","0.7","46","1.4","0.04","0.8","44","1.5"`,
		`"2024-01-15 08:15:00","2","420","12.4","22.1","0.02","0.6","48","1.3","0.03","0.7","46","1.4","0.04","0.8","44","1.5","0.05","0.9","42","1.6"`,
	}
	return strings.Join(rows, "\n") + "\n"
}

func TestSapFlowShortParserParsesValidFileWithTwoSensorsTwoDepths(t *testing.T) {
	p := &SapFlowShortParser{}
	pf, err := p.Parse(sapFlowShortFixture())
	require.Nil(t, err)
	require.NotNil(t, pf)

	assert.Equal(t, "SapFlowShort", pf.Metadata.TableName)
	require.Len(t, pf.Logger, 2)
	assert.Equal(t, "420", pf.Logger[0].LoggerID, "explicit Logger_ID column wins over name-derived id")

	require.Len(t, pf.Sensors, 2)
	addrs := map[string]bool{}
	for _, s := range pf.Sensors {
		addrs[s.SDI12Address] = true
		require.Len(t, s.Pairs, 2, "each sensor reports both inner and outer depth pairs")
	}
	assert.True(t, addrs["1"] && addrs["2"])

	sensor1 := pf.Sensors[0]
	var innerPair, outerPair schema.ThermistorPairTable
	for _, pair := range sensor1.Pairs {
		if pair.Depth == schema.DepthInner {
			innerPair = pair
		} else {
			outerPair = pair
		}
	}
	require.NotNil(t, innerPair.Rows[0].Alpha)
	assert.InDelta(t, 0.01, *innerPair.Rows[0].Alpha, 1e-9)
	require.NotNil(t, outerPair.Rows[1].TimeToMaxTempDownstreamS)
	assert.InDelta(t, 46, *outerPair.Rows[1].TimeToMaxTempDownstreamS, 1e-9)
}

func TestSapFlowShortParserRejectsColumnHeaderMismatch(t *testing.T) {
	p := &SapFlowShortParser{}
	text := strings.Replace(sapFlowShortFixture(), `"Beta_in(1)"`, `"Beta_wrong(1)"`, 1)

	_, err := p.Parse(text)
	require.NotNil(t, err)
	assert.Equal(t, InvalidHeader, err.Kind)
}

func TestSapFlowShortParserRejectsDuplicateRecordNumber(t *testing.T) {
	p := &SapFlowShortParser{}
	text := strings.Replace(sapFlowShortFixture(),
		`"2024-01-15 08:15:00","2",`,
		`"2024-01-15 08:15:00","1",`,
		1)

	_, err := p.Parse(text)
	require.NotNil(t, err)
	assert.Equal(t, DataRow, err.Kind)
}
