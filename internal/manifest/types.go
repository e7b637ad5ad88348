// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package manifest implements the metadata-manifest caller-facing
// surface: a TOML document describing additions to the metadata
// graph, validated and resolved by code/name before being applied under
// one DB transaction.
package manifest

// Manifest is the top-level shape of a metadata manifest TOML document.
// Every section is optional; an empty manifest is valid (and a no-op).
type Manifest struct {
	Projects             []ProjectAdd             `toml:"projects"`
	Sites                []SiteAdd                `toml:"sites"`
	Zones                []ZoneAdd                `toml:"zones"`
	Plots                []PlotAdd                `toml:"plots"`
	Species              []SpeciesAdd             `toml:"species"`
	Plants               []PlantAdd               `toml:"plants"`
	Stems                []StemAdd                `toml:"stems"`
	DataloggerTypes      []DataloggerTypeAdd      `toml:"datalogger_types"`
	Dataloggers          []DataloggerAdd          `toml:"dataloggers"`
	DataloggerAliases    []DataloggerAliasAdd     `toml:"datalogger_aliases"`
	SensorTypes          []SensorTypeAdd          `toml:"sensor_types"`
	SensorThermistorPairs []SensorThermistorPairAdd `toml:"sensor_thermistor_pairs"`
	Deployments          []DeploymentAdd          `toml:"deployments"`
	ParameterOverrides   []ParameterOverrideAdd   `toml:"parameter_overrides"`
}

type ProjectAdd struct {
	Code string `toml:"code"`
	Name string `toml:"name"`
}

type SiteAdd struct {
	ProjectCode string `toml:"project_code"`
	Code        string `toml:"code"`
	Name        string `toml:"name"`
	Timezone    string `toml:"timezone"`
}

type ZoneAdd struct {
	SiteCode string `toml:"site_code"`
	Name     string `toml:"name"`
}

type PlotAdd struct {
	SiteCode string `toml:"site_code"`
	ZoneName string `toml:"zone_name"`
	Name     string `toml:"name"`
}

type SpeciesAdd struct {
	Code           string `toml:"code"`
	ScientificName string `toml:"scientific_name"`
}

type PlantAdd struct {
	SiteCode    string `toml:"site_code"`
	ZoneName    string `toml:"zone_name"`
	PlotName    string `toml:"plot_name"`
	SpeciesCode string `toml:"species_code"`
	Code        string `toml:"code"`
}

type StemAdd struct {
	PlantCode string `toml:"plant_code"`
	Code      string `toml:"code"`
}

type DataloggerTypeAdd struct {
	Model string `toml:"model"`
}

type DataloggerAdd struct {
	TypeModel string `toml:"type_model"`
	Serial    string `toml:"serial"`
}

type DataloggerAliasAdd struct {
	DataloggerSerial string  `toml:"datalogger_serial"`
	LoggerID         string  `toml:"logger_id"`
	StartUTC         string  `toml:"start_utc"`
	EndUTC           *string `toml:"end_utc"`
}

type SensorTypeAdd struct {
	Model string `toml:"model"`
}

type SensorThermistorPairAdd struct {
	SensorTypeModel string `toml:"sensor_type_model"`
	Depth           string `toml:"depth"`
}

type DeploymentAdd struct {
	ProjectCode          string            `toml:"project_code"`
	PlantCode            string            `toml:"plant_code"`
	StemCode             string            `toml:"stem_code"`
	DataloggerSerial     string            `toml:"datalogger_serial"`
	SensorTypeModel      string            `toml:"sensor_type_model"`
	SDI12Address         string            `toml:"sdi12_address"`
	StartUTC             string            `toml:"start_utc"`
	EndUTC               *string           `toml:"end_utc"`
	InstallationMetadata map[string]string `toml:"installation_metadata"`
	IncludeInPipeline    *bool             `toml:"include_in_pipeline"`
}

type ParameterOverrideAdd struct {
	Code         string  `toml:"code"`
	Value        any     `toml:"value"`
	SiteCode     *string `toml:"site_code"`
	SpeciesCode  *string `toml:"species_code"`
	ZoneName     *string `toml:"zone_name"`
	PlotName     *string `toml:"plot_name"`
	PlantCode    *string `toml:"plant_code"`
	StemCode     *string `toml:"stem_code"`
	// DeploymentRef identifies a deployment by its 0-based index within
	// this same manifest's [[deployments]] list, since a not-yet-applied
	// deployment has no id to reference by.
	DeploymentRef *int `toml:"deployment_ref"`
}
