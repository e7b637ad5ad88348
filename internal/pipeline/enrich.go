// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"fmt"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// Enrich performs the temporal point-in-interval join: for every
// observation, finds the deployment active for its (logger_id,
// sdi12_address) at timestamp_utc and attaches project/site/stem/plant/
// species identifiers and installation attributes. Rows with no matching
// deployment keep nil enrichment columns; the matched deployment (or nil)
// is carried alongside for the quality scorer to reuse.
func Enrich(in []schema.Observation, ec *ExecutionContext) []Observations {
	obs := make([]Observations, len(in))
	for i := range in {
		obs[i].Observation = in[i]
	}

	cache := map[string][]Deployment{}
	for i := range obs {
		o := &obs[i].Observation
		key := o.LoggerID + "\x00" + o.SDI12Address
		ds, ok := cache[key]
		if !ok {
			ds = ec.deploymentsFor(o.LoggerID, o.SDI12Address)
			cache[key] = ds
		}
		dep := activeAt(ds, o.TimestampUTC)
		obs[i].Deployment = dep
		if dep == nil {
			continue
		}

		depID := dep.DeploymentID
		o.DeploymentID = &depID
		o.ProjectID, o.ProjectCode, o.ProjectName = strp(dep.ProjectID), strp(dep.ProjectCode), strp(dep.ProjectName)
		o.SiteID, o.SiteCode, o.SiteName = strp(dep.SiteID), strp(dep.SiteCode), strp(dep.SiteName)
		o.ZoneID, o.ZoneName = strp(dep.ZoneID), strp(dep.ZoneName)
		o.PlotID, o.PlotName = strp(dep.PlotID), strp(dep.PlotName)
		o.PlantID, o.PlantCode = strp(dep.PlantID), strp(dep.PlantCode)
		o.SpeciesID, o.SpeciesCode, o.SpeciesScientificName = strp(dep.SpeciesID), strp(dep.SpeciesCode), strp(dep.SpeciesSci)
		o.StemID, o.StemCode = strp(dep.StemID), strp(dep.StemCode)

		if len(dep.InstallationMetadata) > 0 {
			o.InstallationMetadata = make(map[string]string, len(dep.InstallationMetadata))
			for k, v := range dep.InstallationMetadata {
				o.InstallationMetadata[k] = fmt.Sprint(v)
			}
		}
	}

	return obs
}

func strp(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
