// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldlab-science/sapfluxcore/internal/pipeline"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// deploymentColumns lists the joined columns LoadExecutionContext selects,
// matching DeploymentRow field order.
var deploymentColumns = []string{
	"d.deployment_id", "dga.logger_id", "d.sdi12_address", "d.start_utc", "d.end_utc",
	"d.include_in_pipeline", "d.installation_metadata",
	"p.project_id", "p.code AS project_code", "p.name AS project_name",
	"s.site_id", "s.code AS site_code", "s.name AS site_name", "s.timezone AS site_timezone",
	"z.zone_id", "z.name AS zone_name",
	"pl.plot_id", "pl.name AS plot_name",
	"pt.plant_id", "pt.code AS plant_code",
	"sp.species_id", "sp.code AS species_code", "sp.scientific_name AS species_scientific_name",
	"st.stem_id", "st.code AS stem_code",
}

// loadDeployments fetches every deployment with include_in_pipeline=true,
// resolving the datalogger's current logger_id alias at load time: the
// alias whose [start,end) window contains the deployment's own start.
func loadDeployments(ctx context.Context) ([]DeploymentRow, error) {
	query := psql.Select(deploymentColumns...).
		From("deployments d").
		Join("stems st ON st.stem_id = d.stem_id").
		Join("plants pt ON pt.plant_id = st.plant_id").
		Join("plots pl ON pl.plot_id = pt.plot_id").
		Join("zones z ON z.zone_id = pl.zone_id").
		Join("sites s ON s.site_id = z.site_id").
		Join("projects p ON p.project_id = d.project_id").
		Join("species sp ON sp.species_id = pt.species_id").
		Join(`datalogger_aliases dga ON dga.datalogger_id = d.datalogger_id
			AND dga.start_utc <= d.start_utc
			AND (dga.end_utc IS NULL OR dga.end_utc > d.start_utc)`).
		Where(sq.Eq{"d.include_in_pipeline": true})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, connError("build deployments query", err)
	}

	var rows []DeploymentRow
	if err := GetConnection().DB.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, connError("load deployments", err)
	}
	return rows, nil
}

func loadParameters(ctx context.Context) ([]ParameterRow, error) {
	sqlStr, args, err := psql.Select("code", "kind", "default_value").From("parameters").ToSql()
	if err != nil {
		return nil, connError("build parameters query", err)
	}
	var rows []ParameterRow
	if err := GetConnection().DB.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, connError("load parameters", err)
	}
	return rows, nil
}

func loadOverrides(ctx context.Context) ([]ParameterOverrideRow, error) {
	sqlStr, args, err := psql.Select(
		"parameter_override_id", "code", "value",
		"site_id", "species_id", "zone_id", "plot_id", "plant_id", "stem_id", "deployment_id",
	).From("parameter_overrides").ToSql()
	if err != nil {
		return nil, connError("build overrides query", err)
	}
	var rows []ParameterOverrideRow
	if err := GetConnection().DB.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, connError("load overrides", err)
	}
	return rows, nil
}

func loadKnownHashes(ctx context.Context) (map[string]bool, error) {
	sqlStr, args, err := psql.Select("file_hash").From("raw_files").ToSql()
	if err != nil {
		return nil, connError("build raw_files query", err)
	}
	var hashes []string
	if err := GetConnection().DB.SelectContext(ctx, &hashes, sqlStr, args...); err != nil {
		return nil, connError("load known hashes", err)
	}
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		out[h] = true
	}
	return out, nil
}

// LoadExecutionContext loads every piece of metadata the pipeline needs
// for one transaction: active deployments (with site timezone and the
// full enrichment chain pre-joined), the parameter catalog, and the
// override table. Loaded once per transaction.
func LoadExecutionContext(ctx context.Context, now timeNow) (*pipeline.ExecutionContext, error) {
	depRows, err := loadDeployments(ctx)
	if err != nil {
		return nil, err
	}
	paramRows, err := loadParameters(ctx)
	if err != nil {
		return nil, err
	}
	overrideRows, err := loadOverrides(ctx)
	if err != nil {
		return nil, err
	}

	ec := &pipeline.ExecutionContext{Now: now()}

	for _, r := range depRows {
		meta := map[string]string{}
		if len(r.InstallationMetadata) > 0 {
			_ = json.Unmarshal(r.InstallationMetadata, &meta)
		}
		ec.Deployments = append(ec.Deployments, pipeline.Deployment{
			DeploymentID: r.DeploymentID, LoggerID: r.LoggerID, SDI12Address: r.SDI12Address,
			StartUTC: r.StartUTC, EndUTC: r.EndUTC, SiteTimezone: r.SiteTZ,
			ProjectID: r.ProjectID, ProjectCode: r.ProjectCode, ProjectName: r.ProjectName,
			SiteID: r.SiteID, SiteCode: r.SiteCode, SiteName: r.SiteName,
			ZoneID: r.ZoneID, ZoneName: r.ZoneName,
			PlotID: r.PlotID, PlotName: r.PlotName,
			PlantID: r.PlantID, PlantCode: r.PlantCode,
			SpeciesID: r.SpeciesID, SpeciesCode: r.SpeciesCode, SpeciesSci: r.SpeciesSci,
			StemID: r.StemID, StemCode: r.StemCode,
			InstallationMetadata: meta,
		})
	}

	for _, r := range paramRows {
		val, err := decodeParameterValue(r.Kind, r.DefaultValue)
		if err != nil {
			return nil, connError("decode parameter default "+r.Code, err)
		}
		ec.Parameters = append(ec.Parameters, pipeline.ParameterDef{Code: r.Code, Default: val})
	}

	kindByCode := map[string]string{}
	for _, p := range paramRows {
		kindByCode[p.Code] = p.Kind
	}
	for _, r := range overrideRows {
		val, err := decodeParameterValue(kindByCode[r.Code], r.Value)
		if err != nil {
			return nil, connError("decode override value "+r.ParameterOverrideID, err)
		}
		ec.Overrides = append(ec.Overrides, pipeline.ParameterOverride{
			Code: r.Code, Value: val,
			SiteID: r.SiteID, SpeciesID: r.SpeciesID, ZoneID: r.ZoneID, PlotID: r.PlotID,
			PlantID: r.PlantID, StemID: r.StemID, DeploymentID: r.DeploymentID,
		})
	}

	return ec, nil
}

// timeNow lets callers (and tests) control the "now" stamped onto an
// execution context without reaching for a package-level clock.
type timeNow = func() time.Time

func decodeParameterValue(kind string, raw []byte) (schema.ParameterValue, error) {
	switch kind {
	case string(schema.ParamFloat):
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return schema.ParameterValue{}, err
		}
		return schema.ParameterValue{Kind: schema.ParamFloat, Float: f}, nil
	case string(schema.ParamInt):
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return schema.ParameterValue{}, err
		}
		return schema.ParameterValue{Kind: schema.ParamInt, Int: n}, nil
	case string(schema.ParamBool):
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return schema.ParameterValue{}, err
		}
		return schema.ParameterValue{Kind: schema.ParamBool, Bool: b}, nil
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return schema.ParameterValue{}, err
		}
		return schema.ParameterValue{Kind: schema.ParamString, String: s}, nil
	}
}

// KnownHashes loads the current content-addressed dedup set.
func KnownHashes(ctx context.Context) (map[string]bool, error) {
	return loadKnownHashes(ctx)
}
