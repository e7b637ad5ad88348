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

func strPtr(s string) *string { return &s }

func TestResolveParametersFallsBackToCatalogDefault(t *testing.T) {
	ec := &ExecutionContext{Parameters: DefaultCatalog()}
	rows := []Observations{{}}

	ResolveParameters(rows, ec)

	got := rows[0].Parameters[ParamMaxFlux]
	assert.InDelta(t, 40.0, got.AsFloat(), 1e-9)
	assert.Equal(t, string(ScopeDefault), rows[0].ParameterSources[ParamMaxFlux])
}

func TestResolveParametersHonorsFullSevenLevelPrecedence(t *testing.T) {
	ec := &ExecutionContext{
		Parameters: []ParameterDef{{Code: ParamMaxFlux, Default: floatVal(40)}},
		Overrides: []ParameterOverride{
			{Code: ParamMaxFlux, Value: floatVal(10), SiteID: strPtr("site-1")},
			{Code: ParamMaxFlux, Value: floatVal(20), SpeciesID: strPtr("species-1")},
			{Code: ParamMaxFlux, Value: floatVal(30), ZoneID: strPtr("zone-1")},
			{Code: ParamMaxFlux, Value: floatVal(40), PlotID: strPtr("plot-1")},
			{Code: ParamMaxFlux, Value: floatVal(50), PlantID: strPtr("plant-1")},
			{Code: ParamMaxFlux, Value: floatVal(60), StemID: strPtr("stem-1")},
			{Code: ParamMaxFlux, Value: floatVal(70), DeploymentID: strPtr("dep-1")},
		},
	}

	obs := Observations{Observation: schema.Observation{
		SiteID: strPtr("site-1"), SpeciesID: strPtr("species-1"), ZoneID: strPtr("zone-1"),
		PlotID: strPtr("plot-1"), PlantID: strPtr("plant-1"), StemID: strPtr("stem-1"),
		DeploymentID: strPtr("dep-1"),
	}}

	// With every scope matching, deployment (highest precedence) wins.
	val, source := resolveOne(ParameterDef{Code: ParamMaxFlux, Default: floatVal(40)}, &obs, ec.Overrides)
	assert.InDelta(t, 70.0, val.AsFloat(), 1e-9)
	assert.Equal(t, string(ScopeDeployment), source)

	// Remove the deployment/stem/plant scoped matches: plot should now win.
	obs.DeploymentID, obs.StemID, obs.PlantID = nil, nil, nil
	val, source = resolveOne(ParameterDef{Code: ParamMaxFlux, Default: floatVal(40)}, &obs, ec.Overrides)
	assert.InDelta(t, 40.0, val.AsFloat(), 1e-9)
	assert.Equal(t, string(ScopePlot), source)
}

func TestResolveOneIgnoresOverrideForDifferentScopeID(t *testing.T) {
	overrides := []ParameterOverride{
		{Code: ParamMaxFlux, Value: floatVal(999), SiteID: strPtr("other-site")},
	}
	obs := Observations{Observation: schema.Observation{SiteID: strPtr("site-1")}}

	val, source := resolveOne(ParameterDef{Code: ParamMaxFlux, Default: floatVal(40)}, &obs, overrides)

	assert.InDelta(t, 40.0, val.AsFloat(), 1e-9)
	assert.Equal(t, string(ScopeDefault), source)
}

func TestResolveOneIgnoresOverrideForDifferentCode(t *testing.T) {
	overrides := []ParameterOverride{
		{Code: ParamMinFlux, Value: floatVal(-999), SiteID: strPtr("site-1")},
	}
	obs := Observations{Observation: schema.Observation{SiteID: strPtr("site-1")}}

	val, source := resolveOne(ParameterDef{Code: ParamMaxFlux, Default: floatVal(40)}, &obs, overrides)

	assert.InDelta(t, 40.0, val.AsFloat(), 1e-9)
	assert.Equal(t, string(ScopeDefault), source)
}

func TestAsFloatPanicsOnNonNumericValue(t *testing.T) {
	v := schema.ParameterValue{Kind: schema.ParamString, String: "abc"}
	assert.Panics(t, func() { v.AsFloat() })
}

func TestDefaultCatalogHasEighteenEntries(t *testing.T) {
	cat := DefaultCatalog()
	require.Len(t, cat, 18)
	seen := map[string]bool{}
	for _, def := range cat {
		assert.False(t, seen[def.Code], "duplicate parameter code %s", def.Code)
		seen[def.Code] = true
	}
}
