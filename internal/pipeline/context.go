// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pipeline

import (
	"time"

	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// Deployment is the execution-context view of a deployments row: enough
// to drive timestamp correction, metadata enrichment, and quality scoring
// without a database round trip per observation.
type Deployment struct {
	DeploymentID string
	LoggerID     string
	SDI12Address string
	StartUTC     time.Time
	EndUTC       *time.Time // nil = still active
	SiteTimezone string     // IANA zone name, e.g. "America/Los_Angeles"

	ProjectID, ProjectCode, ProjectName string
	SiteID, SiteCode, SiteName          string
	ZoneID, ZoneName                    string
	PlotID, PlotName                    string
	PlantID, PlantCode                  string
	SpeciesID, SpeciesCode, SpeciesSci  string
	StemID, StemCode                    string

	InstallationMetadata map[string]string
}

// ParameterDef is one entry of the fixed parameter catalog.
type ParameterDef struct {
	Code    string
	Default ParameterValue
}

// ParameterValue is the typed parameter value carried by the catalog,
// overrides, and resolved observations alike.
type ParameterValue = schema.ParameterValue

// ScopeLevel names one precedence tier of the parameter override
// hierarchy, highest precedence first.
type ScopeLevel string

const (
	ScopeDeployment ScopeLevel = "deployment"
	ScopeStem       ScopeLevel = "stem"
	ScopePlant      ScopeLevel = "plant"
	ScopePlot       ScopeLevel = "plot"
	ScopeZone       ScopeLevel = "zone"
	ScopeSpecies    ScopeLevel = "species"
	ScopeSite       ScopeLevel = "site"
	ScopeDefault    ScopeLevel = "default"
)

// scopePrecedence lists every non-default level, highest first; used to
// scan in priority order.
var scopePrecedence = []ScopeLevel{
	ScopeDeployment, ScopeStem, ScopePlant, ScopePlot, ScopeZone, ScopeSpecies, ScopeSite,
}

// ParameterOverride is one row of parameter_overrides: a parameter code
// plus a value, scoped to exactly one non-null level among the seven.
type ParameterOverride struct {
	Code  string
	Value ParameterValue

	SiteID       *string
	SpeciesID    *string
	ZoneID       *string
	PlotID       *string
	PlantID      *string
	StemID       *string
	DeploymentID *string
}

// scopeID returns the override's own scope identifier for the given
// level, or nil if the override isn't scoped at that level.
func (o *ParameterOverride) scopeID(level ScopeLevel) *string {
	switch level {
	case ScopeDeployment:
		return o.DeploymentID
	case ScopeStem:
		return o.StemID
	case ScopePlant:
		return o.PlantID
	case ScopePlot:
		return o.PlotID
	case ScopeZone:
		return o.ZoneID
	case ScopeSpecies:
		return o.SpeciesID
	case ScopeSite:
		return o.SiteID
	}
	return nil
}

// ExecutionContext bundles everything the pipeline needs beyond the
// observations themselves: loaded once per transaction by the
// orchestrator and passed through every stage.
type ExecutionContext struct {
	Deployments []Deployment
	Parameters  []ParameterDef
	Overrides   []ParameterOverride
	Now         time.Time
}

// deploymentsFor returns the deployments for one (logger, sdi12 address)
// pair, in the order of ec.Deployments (not sorted by StartUTC).
func (ec *ExecutionContext) deploymentsFor(loggerID, sdi string) []Deployment {
	var out []Deployment
	for _, d := range ec.Deployments {
		if d.LoggerID == loggerID && d.SDI12Address == sdi {
			out = append(out, d)
		}
	}
	return out
}

// deploymentsForLogger returns every deployment for a logger_id,
// regardless of sdi12 address, used by the timestamp fixer to resolve a
// chunk's site timezone without per-sensor context.
func (ec *ExecutionContext) deploymentsForLogger(loggerID string) []Deployment {
	var out []Deployment
	for _, d := range ec.Deployments {
		if d.LoggerID == loggerID {
			out = append(out, d)
		}
	}
	return out
}

// activeAt returns the deployment active at instant t among ds (assumed
// sorted by StartUTC), or nil if none matches.
func activeAt(ds []Deployment, t time.Time) *Deployment {
	for i := range ds {
		d := &ds[i]
		if t.Before(d.StartUTC) {
			continue
		}
		if d.EndUTC != nil && !t.Before(*d.EndUTC) {
			continue
		}
		return d
	}
	return nil
}
