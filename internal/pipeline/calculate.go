// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import "math"

// Calculate applies the DMA-Péclet sap-flux density formula to
// every observation, branch-selecting HRM vs Tmax by beta. Any missing
// input propagates to a nil output for that row; the calculator never
// fails.
func Calculate(obs []Observations) {
	for i := range obs {
		calculateOne(&obs[i])
	}
}

func calculateOne(o *Observations) {
	alpha := o.Alpha
	beta := o.Beta
	tm := o.TimeToMaxTempDownstreamS

	k := o.Parameters[ParamThermalDiffusivityK].AsFloat()
	xd := o.Parameters[ParamProbeDistanceDownstream].AsFloat()
	xu := o.Parameters[ParamProbeDistanceUpstream].AsFloat()
	t0 := o.Parameters[ParamHeatPulseDurationS].AsFloat()
	a := o.Parameters[ParamWoundCoefficientA].AsFloat()
	b := o.Parameters[ParamWoundCoefficientB].AsFloat()
	c := o.Parameters[ParamWoundCoefficientC].AsFloat()
	woodDensity := o.Parameters[ParamWoodDensityKgM3].AsFloat()
	woodSpecificHeat := o.Parameters[ParamWoodSpecificHeatJKgC].AsFloat()
	waterContent := o.Parameters[ParamWaterContentGG].AsFloat()
	waterSpecificHeat := o.Parameters[ParamWaterSpecificHeatJKgC].AsFloat()
	waterDensity := o.Parameters[ParamWaterDensityKgM3].AsFloat()

	if alpha != nil {
		vhHRM := (2 * k * (*alpha)) / (xd + xu) * 3600
		o.VhHRMCmHr = &vhHRM
		vcHRM := woundCorrect(vhHRM, a, b, c)
		o.VcHRMCmHr = &vcHRM
		jHRM := toVolumetric(vcHRM, woodDensity, woodSpecificHeat, waterContent, waterSpecificHeat, waterDensity)
		o.JHRMCmHr = &jHRM
	}

	if alpha != nil && tm != nil && *tm > t0 {
		logTerm := math.Log(1 - t0/(*tm))
		if !math.IsInf(logTerm, 0) && !math.IsNaN(logTerm) {
			inside := (4*k/t0)*logTerm + xd*xd
			if inside > 0 {
				vhTmax := math.Sqrt(inside) / ((*tm) * (*tm - t0)) * 3600
				o.VhTmaxCmHr = &vhTmax
				vcTmax := woundCorrect(vhTmax, a, b, c)
				o.VcTmaxCmHr = &vcTmax
				jTmax := toVolumetric(vcTmax, woodDensity, woodSpecificHeat, waterContent, waterSpecificHeat, waterDensity)
				o.JTmaxCmHr = &jTmax
			}
		}
	}

	if beta != nil && *beta <= 1 {
		o.CalculationMethodUsed = "HRM"
		o.SapFluxDensityJDMACmHr = o.JHRMCmHr
	} else {
		o.CalculationMethodUsed = "Tmax"
		o.SapFluxDensityJDMACmHr = o.JTmaxCmHr
	}
}

// woundCorrect applies the cubic wound-correction polynomial to a raw
// heat-pulse velocity.
func woundCorrect(vh, a, b, c float64) float64 {
	return a*vh + b*vh*vh + c*vh*vh*vh
}

// toVolumetric converts a wound-corrected sap velocity (cm/hr) into
// volumetric sap-flux density J (cm/hr) per the DMA mixture-heat-capacity
// ratio.
func toVolumetric(vc, woodDensity, woodSpecificHeat, waterContent, waterSpecificHeat, waterDensity float64) float64 {
	return vc * woodDensity * (woodSpecificHeat + waterContent*waterSpecificHeat) / (waterDensity * waterSpecificHeat)
}
