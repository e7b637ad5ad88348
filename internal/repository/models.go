// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import "time"

// Project, Site, Zone, Plot, Species, Plant, and Stem mirror the metadata
// graph tables, scanned via sqlx struct tags.
type Project struct {
	ProjectID string `db:"project_id"`
	Code      string `db:"code"`
	Name      string `db:"name"`
}

type Site struct {
	SiteID    string `db:"site_id"`
	ProjectID string `db:"project_id"`
	Code      string `db:"code"`
	Name      string `db:"name"`
	Timezone  string `db:"timezone"`
}

type Zone struct {
	ZoneID string `db:"zone_id"`
	SiteID string `db:"site_id"`
	Name   string `db:"name"`
}

type Plot struct {
	PlotID string `db:"plot_id"`
	ZoneID string `db:"zone_id"`
	Name   string `db:"name"`
}

type Species struct {
	SpeciesID      string `db:"species_id"`
	Code           string `db:"code"`
	ScientificName string `db:"scientific_name"`
}

type Plant struct {
	PlantID   string `db:"plant_id"`
	PlotID    string `db:"plot_id"`
	SpeciesID string `db:"species_id"`
	Code      string `db:"code"`
}

type Stem struct {
	StemID  string `db:"stem_id"`
	PlantID string `db:"plant_id"`
	Code    string `db:"code"`
}

type DataloggerType struct {
	DataloggerTypeID string `db:"datalogger_type_id"`
	Model            string `db:"model"`
}

type Datalogger struct {
	DataloggerID     string `db:"datalogger_id"`
	DataloggerTypeID string `db:"datalogger_type_id"`
	Serial           string `db:"serial"`
}

type DataloggerAlias struct {
	DataloggerAliasID string     `db:"datalogger_alias_id"`
	DataloggerID       string     `db:"datalogger_id"`
	LoggerID           string     `db:"logger_id"`
	StartUTC           time.Time  `db:"start_utc"`
	EndUTC             *time.Time `db:"end_utc"`
}

type SensorType struct {
	SensorTypeID string `db:"sensor_type_id"`
	Model        string `db:"model"`
}

type SensorThermistorPair struct {
	SensorThermistorPairID string `db:"sensor_thermistor_pair_id"`
	SensorTypeID           string `db:"sensor_type_id"`
	Depth                  string `db:"depth"`
}

// DeploymentRow is a deployments row joined against the stem/plant/plot/
// zone/site/project/species chain and the owning datalogger, exactly the
// shape the execution-context loader needs, in one round trip with no
// N+1 per-deployment lookups.
type DeploymentRow struct {
	DeploymentID         string     `db:"deployment_id"`
	LoggerID             string     `db:"logger_id"`
	SDI12Address         string     `db:"sdi12_address"`
	StartUTC             time.Time  `db:"start_utc"`
	EndUTC               *time.Time `db:"end_utc"`
	IncludeInPipeline    bool       `db:"include_in_pipeline"`
	InstallationMetadata []byte     `db:"installation_metadata"`

	ProjectID   string `db:"project_id"`
	ProjectCode string `db:"project_code"`
	ProjectName string `db:"project_name"`
	SiteID      string `db:"site_id"`
	SiteCode    string `db:"site_code"`
	SiteName    string `db:"site_name"`
	SiteTZ      string `db:"site_timezone"`
	ZoneID      string `db:"zone_id"`
	ZoneName    string `db:"zone_name"`
	PlotID      string `db:"plot_id"`
	PlotName    string `db:"plot_name"`
	PlantID     string `db:"plant_id"`
	PlantCode   string `db:"plant_code"`
	SpeciesID   string `db:"species_id"`
	SpeciesCode string `db:"species_code"`
	SpeciesSci  string `db:"species_scientific_name"`
	StemID      string `db:"stem_id"`
	StemCode    string `db:"stem_code"`
}

// ParameterRow is a parameters catalog row.
type ParameterRow struct {
	Code         string `db:"code"`
	Kind         string `db:"kind"`
	DefaultValue []byte `db:"default_value"`
}

// ParameterOverrideRow is a parameter_overrides row with nullable scope
// foreign keys.
type ParameterOverrideRow struct {
	ParameterOverrideID string  `db:"parameter_override_id"`
	Code                string  `db:"code"`
	Value               []byte  `db:"value"`
	SiteID              *string `db:"site_id"`
	SpeciesID           *string `db:"species_id"`
	ZoneID              *string `db:"zone_id"`
	PlotID              *string `db:"plot_id"`
	PlantID             *string `db:"plant_id"`
	StemID              *string `db:"stem_id"`
	DeploymentID        *string `db:"deployment_id"`
}

// TransactionRow is a transactions row.
type TransactionRow struct {
	TransactionID string  `db:"transaction_id"`
	UserID        string  `db:"user_id"`
	Message       *string `db:"message"`
	Outcome       string  `db:"outcome"`
	Receipt       []byte  `db:"receipt"`
}

// RunRow is a runs row.
type RunRow struct {
	RunID                   string `db:"run_id"`
	TriggeringTransactionID string `db:"triggering_transaction_id"`
	PipelineID              string `db:"pipeline_id"`
	Status                  string `db:"status"`
	GitCommitHash           *string `db:"git_commit_hash"`
	RunLog                  []byte `db:"run_log"`
}

// OutputRow is an outputs row.
type OutputRow struct {
	OutputID                     string `db:"output_id"`
	RunID                        string `db:"run_id"`
	ObjectStorePath              string `db:"object_store_path"`
	ReproducibilityCartridgePath string `db:"reproducibility_cartridge_path"`
	RowCount                     int64  `db:"row_count"`
	IsLatest                     bool   `db:"is_latest"`
}
