// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

// ApplyResult mirrors PreflightResult but reflects what was actually
// written, for the caller's confirmation output.
type ApplyResult struct {
	Counts map[string]int
}

// Apply resolves and writes every section of the manifest under one
// transaction, tagging every inserted deployment and parameter override
// with triggeringTransactionID so it can be traced back to the
// transaction that introduced it. Apply
// re-runs Preflight's resolution logic against the live transaction so
// that codes/names created earlier in the same manifest (e.g. a site
// added just above a zone that references it) resolve correctly even
// though they did not exist before Apply began.
func Apply(ctx context.Context, db *sqlx.DB, m *Manifest, triggeringTransactionID *string) (result *ApplyResult, err error) {
	if _, perr := Preflight(ctx, db, m); perr != nil {
		return nil, perr
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest: apply: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				log.Errorf("manifest: apply: rollback: %v", rerr)
			}
		}
	}()

	r := &resolver{tx: tx, projectIDs: map[string]string{}, siteIDs: map[string]string{},
		zoneIDs: map[string]string{}, plotIDs: map[string]string{}, speciesIDs: map[string]string{},
		plantIDs: map[string]string{}, stemIDs: map[string]string{}, dataloggerTypeIDs: map[string]string{},
		dataloggerIDs: map[string]string{}, sensorTypeIDs: map[string]string{}, deploymentIDs: map[string]string{}}

	counts := map[string]int{}

	for _, p := range m.Projects {
		id, ierr := r.insertID(ctx, "projects", "INSERT INTO projects (code, name) VALUES ($1,$2) ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name RETURNING project_id", p.Code, p.Name)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: project %q: %w", p.Code, ierr)
		}
		r.projectIDs[p.Code] = id
		counts["projects"]++
	}

	for _, s := range m.Sites {
		projectID, rerr := r.project(ctx, s.ProjectCode)
		if rerr != nil {
			return nil, rerr
		}
		id, ierr := r.insertID(ctx, "sites",
			"INSERT INTO sites (project_id, code, name, timezone) VALUES ($1,$2,$3,$4) ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, timezone = EXCLUDED.timezone RETURNING site_id",
			projectID, s.Code, s.Name, s.Timezone)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: site %q: %w", s.Code, ierr)
		}
		r.siteIDs[s.Code] = id
		counts["sites"]++
	}

	for _, z := range m.Zones {
		siteID, rerr := r.site(ctx, z.SiteCode)
		if rerr != nil {
			return nil, rerr
		}
		id, ierr := r.insertID(ctx, "zones",
			"INSERT INTO zones (site_id, name) VALUES ($1,$2) ON CONFLICT (site_id, name) DO UPDATE SET name = EXCLUDED.name RETURNING zone_id",
			siteID, z.Name)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: zone %q: %w", z.Name, ierr)
		}
		r.zoneIDs[z.SiteCode+"/"+z.Name] = id
		counts["zones"]++
	}

	for _, p := range m.Plots {
		siteID, rerr := r.site(ctx, p.SiteCode)
		if rerr != nil {
			return nil, rerr
		}
		zoneID, rerr := r.zone(ctx, p.SiteCode, p.ZoneName)
		if rerr != nil {
			return nil, rerr
		}
		id, ierr := r.insertID(ctx, "plots",
			"INSERT INTO plots (site_id, zone_id, name) VALUES ($1,$2,$3) ON CONFLICT (zone_id, name) DO UPDATE SET name = EXCLUDED.name RETURNING plot_id",
			siteID, zoneID, p.Name)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: plot %q: %w", p.Name, ierr)
		}
		r.plotIDs[p.SiteCode+"/"+p.ZoneName+"/"+p.Name] = id
		counts["plots"]++
	}

	for _, s := range m.Species {
		id, ierr := r.insertID(ctx, "species",
			"INSERT INTO species (code, scientific_name) VALUES ($1,$2) ON CONFLICT (code) DO UPDATE SET scientific_name = EXCLUDED.scientific_name RETURNING species_id",
			s.Code, s.ScientificName)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: species %q: %w", s.Code, ierr)
		}
		r.speciesIDs[s.Code] = id
		counts["species"]++
	}

	for _, p := range m.Plants {
		plotID, rerr := r.plot(ctx, p.SiteCode, p.ZoneName, p.PlotName)
		if rerr != nil {
			return nil, rerr
		}
		speciesID, rerr := r.species(ctx, p.SpeciesCode)
		if rerr != nil {
			return nil, rerr
		}
		id, ierr := r.insertID(ctx, "plants",
			"INSERT INTO plants (plot_id, species_id, code) VALUES ($1,$2,$3) ON CONFLICT (code) DO UPDATE SET species_id = EXCLUDED.species_id RETURNING plant_id",
			plotID, speciesID, p.Code)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: plant %q: %w", p.Code, ierr)
		}
		r.plantIDs[p.Code] = id
		counts["plants"]++
	}

	for _, s := range m.Stems {
		plantID, rerr := r.plant(ctx, s.PlantCode)
		if rerr != nil {
			return nil, rerr
		}
		id, ierr := r.insertID(ctx, "stems",
			"INSERT INTO stems (plant_id, code) VALUES ($1,$2) ON CONFLICT (plant_id, code) DO UPDATE SET code = EXCLUDED.code RETURNING stem_id",
			plantID, s.Code)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: stem %q: %w", s.Code, ierr)
		}
		r.stemIDs[s.PlantCode+"/"+s.Code] = id
		counts["stems"]++
	}

	for _, t := range m.DataloggerTypes {
		id, ierr := r.insertID(ctx, "datalogger_types",
			"INSERT INTO datalogger_types (model) VALUES ($1) ON CONFLICT (model) DO UPDATE SET model = EXCLUDED.model RETURNING datalogger_type_id",
			t.Model)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: datalogger_type %q: %w", t.Model, ierr)
		}
		r.dataloggerTypeIDs[t.Model] = id
		counts["datalogger_types"]++
	}

	for _, d := range m.Dataloggers {
		typeID, rerr := r.dataloggerType(ctx, d.TypeModel)
		if rerr != nil {
			return nil, rerr
		}
		id, ierr := r.insertID(ctx, "dataloggers",
			"INSERT INTO dataloggers (datalogger_type_id, serial) VALUES ($1,$2) ON CONFLICT (serial) DO UPDATE SET datalogger_type_id = EXCLUDED.datalogger_type_id RETURNING datalogger_id",
			typeID, d.Serial)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: datalogger %q: %w", d.Serial, ierr)
		}
		r.dataloggerIDs[d.Serial] = id
		counts["dataloggers"]++
	}

	for _, a := range m.DataloggerAliases {
		dataloggerID, rerr := r.datalogger(ctx, a.DataloggerSerial)
		if rerr != nil {
			return nil, rerr
		}
		var overlapping int
		if qerr := tx.GetContext(ctx, &overlapping,
			"SELECT count(*) FROM datalogger_aliases WHERE datalogger_id = $1 AND start_utc < COALESCE($3::timestamptz, 'infinity') AND COALESCE(end_utc, 'infinity') > $2::timestamptz",
			dataloggerID, a.StartUTC, a.EndUTC); qerr != nil {
			return nil, fmt.Errorf("manifest: apply: datalogger_alias %q: overlap check: %w", a.LoggerID, qerr)
		}
		if overlapping > 0 {
			return nil, fmt.Errorf("manifest: apply: datalogger_alias %q: window overlaps an existing alias", a.LoggerID)
		}
		_, ierr := tx.ExecContext(ctx,
			"INSERT INTO datalogger_aliases (datalogger_id, logger_id, start_utc, end_utc) VALUES ($1,$2,$3,$4)",
			dataloggerID, a.LoggerID, a.StartUTC, a.EndUTC)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: datalogger_alias %q: %w", a.LoggerID, ierr)
		}
		counts["datalogger_aliases"]++
	}

	for _, t := range m.SensorTypes {
		id, ierr := r.insertID(ctx, "sensor_types",
			"INSERT INTO sensor_types (model) VALUES ($1) ON CONFLICT (model) DO UPDATE SET model = EXCLUDED.model RETURNING sensor_type_id",
			t.Model)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: sensor_type %q: %w", t.Model, ierr)
		}
		r.sensorTypeIDs[t.Model] = id
		counts["sensor_types"]++
	}

	for _, p := range m.SensorThermistorPairs {
		sensorTypeID, rerr := r.sensorType(ctx, p.SensorTypeModel)
		if rerr != nil {
			return nil, rerr
		}
		_, ierr := tx.ExecContext(ctx,
			"INSERT INTO sensor_thermistor_pairs (sensor_type_id, depth) VALUES ($1,$2) ON CONFLICT (sensor_type_id, depth) DO NOTHING",
			sensorTypeID, p.Depth)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: sensor_thermistor_pair %q/%s: %w", p.SensorTypeModel, p.Depth, ierr)
		}
		counts["sensor_thermistor_pairs"]++
	}

	deploymentIDByIndex := make([]string, len(m.Deployments))
	for i, d := range m.Deployments {
		projectID, rerr := r.project(ctx, d.ProjectCode)
		if rerr != nil {
			return nil, rerr
		}
		stemID, rerr := r.stem(ctx, d.PlantCode, d.StemCode)
		if rerr != nil {
			return nil, rerr
		}
		dataloggerID, rerr := r.datalogger(ctx, d.DataloggerSerial)
		if rerr != nil {
			return nil, rerr
		}
		sensorTypeID, rerr := r.sensorType(ctx, d.SensorTypeModel)
		if rerr != nil {
			return nil, rerr
		}
		metaJSON, jerr := json.Marshal(d.InstallationMetadata)
		if jerr != nil {
			return nil, fmt.Errorf("manifest: apply: deployment[%d]: encode installation_metadata: %w", i, jerr)
		}
		includeInPipeline := true
		if d.IncludeInPipeline != nil {
			includeInPipeline = *d.IncludeInPipeline
		}
		id, ierr := r.insertID(ctx, "deployments",
			`INSERT INTO deployments
				(project_id, stem_id, datalogger_id, sensor_type_id, sdi12_address, start_utc, end_utc, installation_metadata, include_in_pipeline, triggering_transaction_id)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			 RETURNING deployment_id`,
			projectID, stemID, dataloggerID, sensorTypeID, d.SDI12Address, d.StartUTC, d.EndUTC, metaJSON, includeInPipeline, triggeringTransactionID)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: deployment[%d]: %w", i, ierr)
		}
		deploymentIDByIndex[i] = id
		counts["deployments"]++
	}

	for _, ov := range m.ParameterOverrides {
		var scopeColumn, scopeID string
		switch {
		case ov.SiteCode != nil:
			id, rerr := r.site(ctx, *ov.SiteCode)
			if rerr != nil {
				return nil, rerr
			}
			scopeColumn, scopeID = "site_id", id
		case ov.SpeciesCode != nil:
			id, rerr := r.species(ctx, *ov.SpeciesCode)
			if rerr != nil {
				return nil, rerr
			}
			scopeColumn, scopeID = "species_id", id
		case ov.PlantCode != nil:
			id, rerr := r.plant(ctx, *ov.PlantCode)
			if rerr != nil {
				return nil, rerr
			}
			scopeColumn, scopeID = "plant_id", id
		case ov.StemCode != nil:
			// Stem codes are only unique within a plant; a manifest scoping
			// an override directly to a stem must name one whose code is
			// unambiguous across the whole tree, or use DeploymentRef
			// instead.
			id, rerr := r.stemByCodeOnly(ctx, *ov.StemCode)
			if rerr != nil {
				return nil, rerr
			}
			scopeColumn, scopeID = "stem_id", id
		case ov.ZoneName != nil:
			id, rerr := r.zoneByNameOnly(ctx, *ov.ZoneName)
			if rerr != nil {
				return nil, rerr
			}
			scopeColumn, scopeID = "zone_id", id
		case ov.PlotName != nil:
			id, rerr := r.plotByNameOnly(ctx, *ov.PlotName)
			if rerr != nil {
				return nil, rerr
			}
			scopeColumn, scopeID = "plot_id", id
		case ov.DeploymentRef != nil:
			scopeColumn, scopeID = "deployment_id", deploymentIDByIndex[*ov.DeploymentRef]
		}

		valueJSON, jerr := json.Marshal(ov.Value)
		if jerr != nil {
			return nil, fmt.Errorf("manifest: apply: parameter_override %q: encode value: %w", ov.Code, jerr)
		}
		stmt := fmt.Sprintf(
			`INSERT INTO parameter_overrides (code, %s, value, triggering_transaction_id) VALUES ($1,$2,$3,$4)`,
			scopeColumn)
		_, ierr := tx.ExecContext(ctx, stmt, ov.Code, scopeID, valueJSON, triggeringTransactionID)
		if ierr != nil {
			return nil, fmt.Errorf("manifest: apply: parameter_override %q: %w", ov.Code, ierr)
		}
		counts["parameter_overrides"]++
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("manifest: apply: commit: %w", err)
	}

	return &ApplyResult{Counts: counts}, nil
}

// resolver caches entity ids by code/name within a single Apply call,
// falling back to a direct SELECT for entities referenced by code but not
// added in this manifest (e.g. a deployment against a datalogger that
// already existed before this manifest was written).
type resolver struct {
	tx *sqlx.Tx

	projectIDs        map[string]string
	siteIDs           map[string]string
	zoneIDs           map[string]string
	plotIDs           map[string]string
	speciesIDs        map[string]string
	plantIDs          map[string]string
	stemIDs           map[string]string
	dataloggerTypeIDs map[string]string
	dataloggerIDs     map[string]string
	sensorTypeIDs     map[string]string
	deploymentIDs     map[string]string
}

func (r *resolver) insertID(ctx context.Context, table, query string, args ...interface{}) (string, error) {
	var id string
	err := r.tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *resolver) selectID(ctx context.Context, table, column, value string) (string, error) {
	var id string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", idColumn(table), table, column)
	if err := r.tx.GetContext(ctx, &id, query, value); err != nil {
		return "", fmt.Errorf("manifest: apply: resolve %s.%s=%q: %w", table, column, value, err)
	}
	return id, nil
}

func (r *resolver) project(ctx context.Context, code string) (string, error) {
	if id, ok := r.projectIDs[code]; ok {
		return id, nil
	}
	return r.selectID(ctx, "projects", "code", code)
}

func (r *resolver) site(ctx context.Context, code string) (string, error) {
	if id, ok := r.siteIDs[code]; ok {
		return id, nil
	}
	return r.selectID(ctx, "sites", "code", code)
}

func (r *resolver) zone(ctx context.Context, siteCode, name string) (string, error) {
	if id, ok := r.zoneIDs[siteCode+"/"+name]; ok {
		return id, nil
	}
	siteID, err := r.site(ctx, siteCode)
	if err != nil {
		return "", err
	}
	var id string
	err = r.tx.GetContext(ctx, &id, "SELECT zone_id FROM zones WHERE site_id = $1 AND name = $2", siteID, name)
	if err != nil {
		return "", fmt.Errorf("manifest: apply: resolve zone %q/%q: %w", siteCode, name, err)
	}
	return id, nil
}

func (r *resolver) plot(ctx context.Context, siteCode, zoneName, name string) (string, error) {
	key := siteCode + "/" + zoneName + "/" + name
	if id, ok := r.plotIDs[key]; ok {
		return id, nil
	}
	zoneID, err := r.zone(ctx, siteCode, zoneName)
	if err != nil {
		return "", err
	}
	var id string
	err = r.tx.GetContext(ctx, &id, "SELECT plot_id FROM plots WHERE zone_id = $1 AND name = $2", zoneID, name)
	if err != nil {
		return "", fmt.Errorf("manifest: apply: resolve plot %q: %w", key, err)
	}
	return id, nil
}

func (r *resolver) species(ctx context.Context, code string) (string, error) {
	if id, ok := r.speciesIDs[code]; ok {
		return id, nil
	}
	return r.selectID(ctx, "species", "code", code)
}

func (r *resolver) plant(ctx context.Context, code string) (string, error) {
	if id, ok := r.plantIDs[code]; ok {
		return id, nil
	}
	return r.selectID(ctx, "plants", "code", code)
}

func (r *resolver) stem(ctx context.Context, plantCode, code string) (string, error) {
	key := plantCode + "/" + code
	if id, ok := r.stemIDs[key]; ok {
		return id, nil
	}
	plantID, err := r.plant(ctx, plantCode)
	if err != nil {
		return "", err
	}
	var id string
	err = r.tx.GetContext(ctx, &id, "SELECT stem_id FROM stems WHERE plant_id = $1 AND code = $2", plantID, code)
	if err != nil {
		return "", fmt.Errorf("manifest: apply: resolve stem %q: %w", key, err)
	}
	return id, nil
}

func (r *resolver) dataloggerType(ctx context.Context, model string) (string, error) {
	if id, ok := r.dataloggerTypeIDs[model]; ok {
		return id, nil
	}
	return r.selectID(ctx, "datalogger_types", "model", model)
}

func (r *resolver) datalogger(ctx context.Context, serial string) (string, error) {
	if id, ok := r.dataloggerIDs[serial]; ok {
		return id, nil
	}
	return r.selectID(ctx, "dataloggers", "serial", serial)
}

func (r *resolver) sensorType(ctx context.Context, model string) (string, error) {
	if id, ok := r.sensorTypeIDs[model]; ok {
		return id, nil
	}
	return r.selectID(ctx, "sensor_types", "model", model)
}

func (r *resolver) zoneByNameOnly(ctx context.Context, name string) (string, error) {
	for key, id := range r.zoneIDs {
		if strings.HasSuffix(key, "/"+name) {
			return id, nil
		}
	}
	var id string
	err := r.tx.GetContext(ctx, &id, "SELECT zone_id FROM zones WHERE name = $1 LIMIT 1", name)
	if err != nil {
		return "", fmt.Errorf("manifest: apply: resolve zone by name %q: %w", name, err)
	}
	return id, nil
}

func (r *resolver) plotByNameOnly(ctx context.Context, name string) (string, error) {
	for key, id := range r.plotIDs {
		if strings.HasSuffix(key, "/"+name) {
			return id, nil
		}
	}
	var id string
	err := r.tx.GetContext(ctx, &id, "SELECT plot_id FROM plots WHERE name = $1 LIMIT 1", name)
	if err != nil {
		return "", fmt.Errorf("manifest: apply: resolve plot by name %q: %w", name, err)
	}
	return id, nil
}

func (r *resolver) stemByCodeOnly(ctx context.Context, code string) (string, error) {
	for key, id := range r.stemIDs {
		// key is "plant_code/stem_code"
		if strings.HasSuffix(key, "/"+code) {
			return id, nil
		}
	}
	var id string
	err := r.tx.GetContext(ctx, &id, "SELECT stem_id FROM stems WHERE code = $1 LIMIT 1", code)
	if err != nil {
		return "", fmt.Errorf("manifest: apply: resolve stem by code %q: %w", code, err)
	}
	return id, nil
}
