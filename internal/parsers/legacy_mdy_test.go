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
)

func legacyMDYFixture() string {
	rows := []string{
		`"TOA5","CR10_99","CR10","99","CR10.Std.1","CPU:mdy.cr1","9012","MDYSapFlow"`,
		`"TIMESTAMP","RECORD","BattV","PTemp_C","SDI_Addr(1)","Alpha_in(1)","Beta_in(1)","tMaxT_in(1)","Tpre_in(1)","Tpost_in(1)","dT_in(1)","Alpha_out(1)","Beta_out(1)","tMaxT_out(1)","Tpre_out(1)","Tpost_out(1)","dT_out(1)"`,
		`"TS","RN","Volts","Deg C","","cm/hr","cm/hr","sec","Deg C","Deg C","Deg C","cm/hr","cm/hr","sec","Deg C","Deg C","Deg C"`,
		`"","","","","","","","","","","","","","","","",""`,
		`"1/15/24 8:00","1","12.0","18.0","1","0.01","0.5","50","20.1","20.3","0.2","0.02","0.6","48","20.0","20.2","0.2"`,
		`"1/15/24 8:15","2","12.0","18.0","!","0.02","0.6","49","20.2","20.4","0.2","0.03","0.7","47","20.1","20.3","0.2"`,
		`"1/15/24 8:30","3","12.1","18.2","1","0.03","0.7","51","20.3","20.5","0.2","0.04","0.8","46","20.2","20.4","0.2"`,
	}
	return strings.Join(rows, "\n") + "\n"
}

func TestLegacyMDYParserSkipsRowsWithCorruptSDIAddress(t *testing.T) {
	p := &LegacyMDYParser{}
	pf, err := p.Parse(legacyMDYFixture())
	require.Nil(t, err)
	require.Len(t, pf.Logger, 2, "the row with the corrupted address byte is dropped")
	assert.Equal(t, int64(1), pf.Logger[0].Record)
	assert.Equal(t, int64(3), pf.Logger[1].Record)
}

func TestLegacyMDYParserParsesSlashDateWithNoSeconds(t *testing.T) {
	p := &LegacyMDYParser{}
	pf, err := p.Parse(legacyMDYFixture())
	require.Nil(t, err)
	assert.Equal(t, 2024, pf.Logger[0].Timestamp.Year())
	assert.Equal(t, 8, pf.Logger[0].Timestamp.Hour())
	assert.Equal(t, 0, pf.Logger[0].Timestamp.Second())
}

func TestLegacyMDYParserDerivesLoggerIDFromNameHavingNoColumn(t *testing.T) {
	p := &LegacyMDYParser{}
	pf, err := p.Parse(legacyMDYFixture())
	require.Nil(t, err)
	for _, row := range pf.Logger {
		assert.Equal(t, "99", row.LoggerID)
	}
}
