// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// Standard parameter codes, the minimum required catalog.
const (
	ParamThermalDiffusivityK        = "thermal_diffusivity_k"
	ParamProbeDistanceDownstream    = "probe_distance_downstream_cm"
	ParamProbeDistanceUpstream      = "probe_distance_upstream_cm"
	ParamHeatPulseDurationS         = "heat_pulse_duration_s"
	ParamWoundCoefficientA          = "wound_coefficient_a"
	ParamWoundCoefficientB          = "wound_coefficient_b"
	ParamWoundCoefficientC          = "wound_coefficient_c"
	ParamWoodDensityKgM3            = "wood_density_kg_m3"
	ParamWoodSpecificHeatJKgC       = "wood_specific_heat_j_kg_c"
	ParamWaterContentGG             = "water_content_g_g"
	ParamWaterSpecificHeatJKgC      = "water_specific_heat_j_kg_c"
	ParamWaterDensityKgM3           = "water_density_kg_m3"
	ParamMaxFlux                    = "max_flux"
	ParamMinFlux                    = "min_flux"
	ParamGapYears                   = "gap_years"
	ParamStartGraceMinutes          = "start_grace_minutes"
	ParamEndGraceMinutes            = "end_grace_minutes"
	ParamFutureLeadMinutes          = "future_lead_minutes"
)

// DefaultCatalog returns the fixed parameter catalog with the minimum
// required definitions and their documented defaults.
func DefaultCatalog() []ParameterDef {
	f := func(v float64) schema.ParameterValue { return schema.ParameterValue{Kind: schema.ParamFloat, Float: v} }
	return []ParameterDef{
		{Code: ParamThermalDiffusivityK, Default: f(0.002409611)},
		{Code: ParamProbeDistanceDownstream, Default: f(0.6)},
		{Code: ParamProbeDistanceUpstream, Default: f(0.6)},
		{Code: ParamHeatPulseDurationS, Default: f(3)},
		{Code: ParamWoundCoefficientA, Default: f(1.8905)},
		{Code: ParamWoundCoefficientB, Default: f(0)},
		{Code: ParamWoundCoefficientC, Default: f(0)},
		{Code: ParamWoodDensityKgM3, Default: f(500)},
		{Code: ParamWoodSpecificHeatJKgC, Default: f(1000)},
		{Code: ParamWaterContentGG, Default: f(1.0)},
		{Code: ParamWaterSpecificHeatJKgC, Default: f(4182)},
		{Code: ParamWaterDensityKgM3, Default: f(1000)},
		{Code: ParamMaxFlux, Default: f(40)},
		{Code: ParamMinFlux, Default: f(-15)},
		{Code: ParamGapYears, Default: f(2)},
		{Code: ParamStartGraceMinutes, Default: f(0)},
		{Code: ParamEndGraceMinutes, Default: f(0)},
		{Code: ParamFutureLeadMinutes, Default: f(5)},
	}
}

// ResolveParameters implements the seven-level precedence resolution of
// the seven-level precedence resolution: for each observation and each catalog parameter, scans overrides
// in priority order (deployment > stem > plant > plot > zone > species >
// site > default) and emits the first match plus its provenance.
func ResolveParameters(obs []Observations, ec *ExecutionContext) {
	for i := range obs {
		o := &obs[i]
		o.Parameters = make(map[string]schema.ParameterValue, len(ec.Parameters))
		o.ParameterSources = make(map[string]string, len(ec.Parameters))

		for _, def := range ec.Parameters {
			val, source := resolveOne(def, o, ec.Overrides)
			o.Parameters[def.Code] = val
			o.ParameterSources[def.Code] = source
		}
	}
}

func resolveOne(def ParameterDef, o *Observations, overrides []ParameterOverride) (schema.ParameterValue, string) {
	for _, level := range scopePrecedence {
		for _, ov := range overrides {
			if ov.Code != def.Code {
				continue
			}
			id := ov.scopeID(level)
			if id == nil {
				continue
			}
			if matchesScope(o, level, *id) {
				return ov.Value, string(level)
			}
		}
	}
	return def.Default, string(ScopeDefault)
}

func matchesScope(o *Observations, level ScopeLevel, id string) bool {
	switch level {
	case ScopeDeployment:
		return o.DeploymentID != nil && *o.DeploymentID == id
	case ScopeStem:
		return o.StemID != nil && *o.StemID == id
	case ScopePlant:
		return o.PlantID != nil && *o.PlantID == id
	case ScopePlot:
		return o.PlotID != nil && *o.PlotID == id
	case ScopeZone:
		return o.ZoneID != nil && *o.ZoneID == id
	case ScopeSpecies:
		return o.SpeciesID != nil && *o.SpeciesID == id
	case ScopeSite:
		return o.SiteID != nil && *o.SiteID == id
	}
	return false
}
