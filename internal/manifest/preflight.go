// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package manifest

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PreflightResult carries the per-section row counts a successful
// preflight would apply, for the caller to display before committing to
// Apply.
type PreflightResult struct {
	Counts map[string]int
}

// PreflightError aggregates every resolution/validation failure found, so
// a caller sees the whole list in one round trip rather than fixing
// errors one at a time.
type PreflightError struct {
	Problems []string
}

func (e *PreflightError) Error() string {
	msg := fmt.Sprintf("manifest preflight: %d problem(s)", len(e.Problems))
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// lookup is the minimal set of existing-row code/name resolvers preflight
// needs against the live database, a thin wrapper over the *sqlx.DB.
type lookup struct {
	db *sqlx.DB
}

func (l *lookup) existsByCode(ctx context.Context, table, column, code string) (string, bool, error) {
	var id string
	sqlStr, args, err := psql.Select(idColumn(table)).From(table).Where(sq.Eq{column: code}).ToSql()
	if err != nil {
		return "", false, err
	}
	err = l.db.GetContext(ctx, &id, sqlStr, args...)
	if err != nil {
		return "", false, nil //nolint:nilerr // not-found is a normal outcome here, not a query failure
	}
	return id, true, nil
}

func idColumn(table string) string {
	switch table {
	case "projects":
		return "project_id"
	case "sites":
		return "site_id"
	case "zones":
		return "zone_id"
	case "plots":
		return "plot_id"
	case "species":
		return "species_id"
	case "plants":
		return "plant_id"
	case "stems":
		return "stem_id"
	case "datalogger_types":
		return "datalogger_type_id"
	case "dataloggers":
		return "datalogger_id"
	case "sensor_types":
		return "sensor_type_id"
	}
	return table + "_id"
}

// Preflight checks the manifest against both the live database and the
// manifest's own new rows, returning per-section counts on success or a
// PreflightError listing every problem found. It reports duplicate
// project, site, species, plant and stem codes; unresolved references
// from sites to projects, zones and plots to sites, plants to species,
// stems to plants, dataloggers to types, thermistor pairs to sensor
// types and deployments to datalogger serials; invalid deployment
// timestamps and thermistor depths; overrides without exactly one scope
// or with an out-of-range deployment_ref; and overlapping alias windows
// among the manifest's new aliases. It does not resolve a plot's zone, a
// plant's plot, an alias's datalogger, a deployment's project, stem or
// sensor type, or the target an override scope names, and it does not
// detect two overrides with the same code and scope.
func Preflight(ctx context.Context, db *sqlx.DB, m *Manifest) (*PreflightResult, error) {
	l := &lookup{db: db}
	var problems []string

	projectCodes := map[string]bool{}
	for _, p := range m.Projects {
		if projectCodes[p.Code] {
			problems = append(problems, fmt.Sprintf("duplicate project code %q in manifest", p.Code))
		}
		projectCodes[p.Code] = true
	}

	siteCodes := map[string]bool{}
	for _, s := range m.Sites {
		if siteCodes[s.Code] {
			problems = append(problems, fmt.Sprintf("duplicate site code %q in manifest", s.Code))
		}
		siteCodes[s.Code] = true
		if !projectCodes[s.ProjectCode] {
			if _, ok, err := l.existsByCode(ctx, "projects", "code", s.ProjectCode); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("site %q: unresolved project_code %q", s.Code, s.ProjectCode))
			}
		}
	}

	for _, z := range m.Zones {
		if !siteCodes[z.SiteCode] {
			if _, ok, err := l.existsByCode(ctx, "sites", "code", z.SiteCode); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("zone %q: unresolved site_code %q", z.Name, z.SiteCode))
			}
		}
	}

	for _, p := range m.Plots {
		if !siteCodes[p.SiteCode] {
			if _, ok, err := l.existsByCode(ctx, "sites", "code", p.SiteCode); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("plot %q: unresolved site_code %q", p.Name, p.SiteCode))
			}
		}
	}

	speciesCodes := map[string]bool{}
	for _, s := range m.Species {
		if speciesCodes[s.Code] {
			problems = append(problems, fmt.Sprintf("duplicate species code %q in manifest", s.Code))
		}
		speciesCodes[s.Code] = true
	}

	plantCodes := map[string]bool{}
	for _, p := range m.Plants {
		if plantCodes[p.Code] {
			problems = append(problems, fmt.Sprintf("duplicate plant code %q in manifest", p.Code))
		}
		plantCodes[p.Code] = true
		if !speciesCodes[p.SpeciesCode] {
			if _, ok, err := l.existsByCode(ctx, "species", "code", p.SpeciesCode); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("plant %q: unresolved species_code %q", p.Code, p.SpeciesCode))
			}
		}
	}

	stemCodes := map[string]bool{} // keyed "plant_code/stem_code"
	for _, s := range m.Stems {
		key := s.PlantCode + "/" + s.Code
		if stemCodes[key] {
			problems = append(problems, fmt.Sprintf("duplicate stem code %q within plant %q", s.Code, s.PlantCode))
		}
		stemCodes[key] = true
		if !plantCodes[s.PlantCode] {
			if _, ok, err := l.existsByCode(ctx, "plants", "code", s.PlantCode); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("stem %q: unresolved plant_code %q", s.Code, s.PlantCode))
			}
		}
	}

	dataloggerTypeModels := map[string]bool{}
	for _, t := range m.DataloggerTypes {
		dataloggerTypeModels[t.Model] = true
	}
	dataloggerSerials := map[string]bool{}
	for _, d := range m.Dataloggers {
		dataloggerSerials[d.Serial] = true
		if !dataloggerTypeModels[d.TypeModel] {
			if _, ok, err := l.existsByCode(ctx, "datalogger_types", "model", d.TypeModel); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("datalogger %q: unresolved type_model %q", d.Serial, d.TypeModel))
			}
		}
	}

	problems = append(problems, checkAliasOverlaps(m.DataloggerAliases)...)

	sensorTypeModels := map[string]bool{}
	for _, t := range m.SensorTypes {
		sensorTypeModels[t.Model] = true
	}
	for _, p := range m.SensorThermistorPairs {
		if p.Depth != "inner" && p.Depth != "outer" {
			problems = append(problems, fmt.Sprintf("sensor_thermistor_pair %q/%s: depth must be inner or outer", p.SensorTypeModel, p.Depth))
		}
		if !sensorTypeModels[p.SensorTypeModel] {
			if _, ok, err := l.existsByCode(ctx, "sensor_types", "model", p.SensorTypeModel); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("sensor_thermistor_pair: unresolved sensor_type_model %q", p.SensorTypeModel))
			}
		}
	}

	for i, d := range m.Deployments {
		if _, err := time.Parse(time.RFC3339, d.StartUTC); err != nil {
			problems = append(problems, fmt.Sprintf("deployment[%d]: invalid start_utc %q", i, d.StartUTC))
		}
		if d.EndUTC != nil {
			if _, err := time.Parse(time.RFC3339, *d.EndUTC); err != nil {
				problems = append(problems, fmt.Sprintf("deployment[%d]: invalid end_utc %q", i, *d.EndUTC))
			}
		}
		if !dataloggerSerials[d.DataloggerSerial] {
			if _, ok, err := l.existsByCode(ctx, "dataloggers", "serial", d.DataloggerSerial); err != nil {
				return nil, err
			} else if !ok {
				problems = append(problems, fmt.Sprintf("deployment[%d]: unresolved datalogger_serial %q", i, d.DataloggerSerial))
			}
		}
	}

	for _, ov := range m.ParameterOverrides {
		scopeCount := 0
		if ov.SiteCode != nil {
			scopeCount++
		}
		if ov.SpeciesCode != nil {
			scopeCount++
		}
		if ov.ZoneName != nil {
			scopeCount++
		}
		if ov.PlotName != nil {
			scopeCount++
		}
		if ov.PlantCode != nil {
			scopeCount++
		}
		if ov.StemCode != nil {
			scopeCount++
		}
		if ov.DeploymentRef != nil {
			scopeCount++
		}
		if scopeCount != 1 {
			problems = append(problems, fmt.Sprintf("parameter_override %q: exactly one scope must be set, got %d", ov.Code, scopeCount))
		}
		if ov.DeploymentRef != nil && (*ov.DeploymentRef < 0 || *ov.DeploymentRef >= len(m.Deployments)) {
			problems = append(problems, fmt.Sprintf("parameter_override %q: deployment_ref %d out of range", ov.Code, *ov.DeploymentRef))
		}
	}

	if len(problems) > 0 {
		return nil, &PreflightError{Problems: problems}
	}

	return &PreflightResult{Counts: map[string]int{
		"projects": len(m.Projects), "sites": len(m.Sites), "zones": len(m.Zones), "plots": len(m.Plots),
		"species": len(m.Species), "plants": len(m.Plants), "stems": len(m.Stems),
		"datalogger_types": len(m.DataloggerTypes), "dataloggers": len(m.Dataloggers),
		"datalogger_aliases": len(m.DataloggerAliases), "sensor_types": len(m.SensorTypes),
		"sensor_thermistor_pairs": len(m.SensorThermistorPairs), "deployments": len(m.Deployments),
		"parameter_overrides": len(m.ParameterOverrides),
	}}, nil
}

// checkAliasOverlaps validates that no two newly added aliases for the
// same datalogger have overlapping [start, end) windows. Overlaps against
// aliases already in the database are caught separately when Apply's
// insert runs, since that check needs the datalogger's resolved id.
func checkAliasOverlaps(aliases []DataloggerAliasAdd) []string {
	type window struct {
		start, end string // RFC3339; end == "" means open
	}
	bySerial := map[string][]window{}
	for _, a := range aliases {
		end := ""
		if a.EndUTC != nil {
			end = *a.EndUTC
		}
		bySerial[a.DataloggerSerial] = append(bySerial[a.DataloggerSerial], window{a.StartUTC, end})
	}

	var problems []string
	for serial, windows := range bySerial {
		for i := 0; i < len(windows); i++ {
			for j := i + 1; j < len(windows); j++ {
				if windowsOverlap(windows[i], windows[j]) {
					problems = append(problems, fmt.Sprintf("datalogger %q: new alias windows overlap", serial))
				}
			}
		}
	}
	return problems
}

func windowsOverlap(a, b struct{ start, end string }) bool {
	aEnd, bEnd := a.end, b.end
	if aEnd == "" {
		aEnd = "9999-12-31T23:59:59Z"
	}
	if bEnd == "" {
		bEnd = "9999-12-31T23:59:59Z"
	}
	return a.start < bEnd && b.start < aEnd
}
