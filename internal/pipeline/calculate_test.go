// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

func floatVal(v float64) schema.ParameterValue {
	return schema.ParameterValue{Kind: schema.ParamFloat, Float: v}
}

func defaultParams() map[string]schema.ParameterValue {
	out := make(map[string]schema.ParameterValue)
	for _, def := range DefaultCatalog() {
		out[def.Code] = def.Default
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func TestCalculateHRMBranchWhenBetaAtOrBelowOne(t *testing.T) {
	alpha := 0.05
	beta := 0.8
	rows := []Observations{{
		Observation: schema.Observation{
			ThermistorMetrics: schema.ThermistorMetrics{Alpha: &alpha, Beta: &beta},
			Parameters:        defaultParams(),
		},
	}}

	Calculate(rows)

	o := rows[0]
	require.NotNil(t, o.VhHRMCmHr)
	require.NotNil(t, o.JHRMCmHr)
	assert.Equal(t, "HRM", o.CalculationMethodUsed)
	assert.Same(t, o.JHRMCmHr, o.SapFluxDensityJDMACmHr)
}

func TestCalculateOneTmaxBranchWhenBetaAboveOne(t *testing.T) {
	alpha := 0.05
	beta := 1.5
	tm := 60.0
	o := Observations{
		Observation: schema.Observation{
			ThermistorMetrics: schema.ThermistorMetrics{Alpha: &alpha, Beta: &beta, TimeToMaxTempDownstreamS: &tm},
			Parameters:        defaultParams(),
		},
	}

	calculateOne(&o)

	assert.Equal(t, "Tmax", o.CalculationMethodUsed)
	require.NotNil(t, o.JTmaxCmHr)
	assert.Same(t, o.JTmaxCmHr, o.SapFluxDensityJDMACmHr)
}

func TestCalculateOneTmaxSkippedWhenTmNotAfterT0(t *testing.T) {
	alpha := 0.05
	beta := 1.5
	tm := 1.0 // heat_pulse_duration_s default is 3, so tm <= t0
	o := Observations{
		Observation: schema.Observation{
			ThermistorMetrics: schema.ThermistorMetrics{Alpha: &alpha, Beta: &beta, TimeToMaxTempDownstreamS: &tm},
			Parameters:        defaultParams(),
		},
	}

	calculateOne(&o)

	assert.Nil(t, o.VhTmaxCmHr)
	assert.Nil(t, o.JTmaxCmHr)
	assert.Equal(t, "Tmax", o.CalculationMethodUsed)
	assert.Nil(t, o.SapFluxDensityJDMACmHr)
}

func TestCalculateOneMissingAlphaLeavesHRMFieldsNil(t *testing.T) {
	beta := 0.5
	o := Observations{
		Observation: schema.Observation{
			ThermistorMetrics: schema.ThermistorMetrics{Beta: &beta},
			Parameters:        defaultParams(),
		},
	}

	calculateOne(&o)

	assert.Nil(t, o.VhHRMCmHr)
	assert.Nil(t, o.JHRMCmHr)
	assert.Equal(t, "HRM", o.CalculationMethodUsed)
	assert.Nil(t, o.SapFluxDensityJDMACmHr)
}

func TestCalculateOneMissingBetaDefaultsToTmaxMethod(t *testing.T) {
	alpha := 0.05
	o := Observations{
		Observation: schema.Observation{
			ThermistorMetrics: schema.ThermistorMetrics{Alpha: &alpha},
			Parameters:        defaultParams(),
		},
	}

	calculateOne(&o)

	assert.Equal(t, "Tmax", o.CalculationMethodUsed)
	assert.Nil(t, o.SapFluxDensityJDMACmHr)
}

func TestWoundCorrectIsLinearWithDefaultCoefficients(t *testing.T) {
	// b == c == 0 in the default catalog, so the cubic collapses to a*vh.
	got := woundCorrect(2.0, 1.8905, 0, 0)
	assert.InDelta(t, 2.0*1.8905, got, 1e-9)
}

func TestToVolumetricMatchesMixtureHeatCapacityRatio(t *testing.T) {
	got := toVolumetric(1.0, 500, 1000, 1.0, 4182, 1000)
	want := 1.0 * 500 * (1000 + 1.0*4182) / (1000 * 4182)
	assert.InDelta(t, want, got, 1e-9)
}

func TestCalculateOneNegativeInsideSkipsTmax(t *testing.T) {
	alpha := 0.05
	beta := 1.5
	tm := 3.01 // just above t0=3, logTerm close to -inf magnitude but inside may go negative with tiny k
	o := Observations{
		Observation: schema.Observation{
			ThermistorMetrics: schema.ThermistorMetrics{Alpha: &alpha, Beta: &beta, TimeToMaxTempDownstreamS: &tm},
			Parameters:        defaultParams(),
		},
	}
	// Force inside <= 0 by zeroing the diffusivity term and probe distance.
	params := o.Parameters
	params[ParamThermalDiffusivityK] = floatVal(0)
	params[ParamProbeDistanceDownstream] = floatVal(0)

	calculateOne(&o)

	assert.Nil(t, o.VhTmaxCmHr)
	assert.Nil(t, o.JTmaxCmHr)
}
