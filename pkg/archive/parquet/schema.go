// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parquet

// ParquetObservationRow is the flattened, Parquet-encodable shape of one
// schema.Observation. Every pipeline-populated field becomes an optional
// column so a row from a skipped or partially-resolved observation still
// round-trips without loss.
type ParquetObservationRow struct {
	LoggerID     string `parquet:"logger_id"`
	Record       int64  `parquet:"record"`
	SDI12Address string `parquet:"sdi12_address"`
	Depth        string `parquet:"thermistor_depth"`

	RawLocalTimestamp int64    `parquet:"raw_local_timestamp_often_wrong"`
	BatteryVoltageV   *float64 `parquet:"battery_voltage_v,optional"`
	PanelTemperatureC *float64 `parquet:"panel_temperature_c,optional"`

	Alpha                    *float64 `parquet:"alpha,optional"`
	Beta                     *float64 `parquet:"beta,optional"`
	TimeToMaxTempDownstreamS *float64 `parquet:"time_to_max_temp_downstream_s,optional"`
	TempPreUpstreamC         *float64 `parquet:"temp_pre_upstream_c,optional"`
	TempPostUpstreamC        *float64 `parquet:"temp_post_upstream_c,optional"`
	TempDeltaUpstreamC       *float64 `parquet:"temp_delta_upstream_c,optional"`
	TempPreDownstreamC       *float64 `parquet:"temp_pre_downstream_c,optional"`
	TempPostDownstreamC      *float64 `parquet:"temp_post_downstream_c,optional"`
	TempDeltaDownstreamC     *float64 `parquet:"temp_delta_downstream_c,optional"`

	FileHash string `parquet:"file_hash"`

	TimestampUTC     int64  `parquet:"timestamp_utc"`
	UTCOffsetSeconds int32  `parquet:"utc_offset_seconds"`
	FileSetSignature string `parquet:"file_set_signature"`

	DeploymentID          *string `parquet:"deployment_id,optional"`
	ProjectID             *string `parquet:"project_id,optional"`
	ProjectCode           *string `parquet:"project_code,optional"`
	ProjectName           *string `parquet:"project_name,optional"`
	SiteID                *string `parquet:"site_id,optional"`
	SiteCode              *string `parquet:"site_code,optional"`
	SiteName              *string `parquet:"site_name,optional"`
	ZoneID                *string `parquet:"zone_id,optional"`
	ZoneName              *string `parquet:"zone_name,optional"`
	PlotID                *string `parquet:"plot_id,optional"`
	PlotName              *string `parquet:"plot_name,optional"`
	PlantID               *string `parquet:"plant_id,optional"`
	PlantCode             *string `parquet:"plant_code,optional"`
	SpeciesID             *string `parquet:"species_id,optional"`
	SpeciesCode           *string `parquet:"species_code,optional"`
	SpeciesScientificName *string `parquet:"species_scientific_name,optional"`
	StemID                *string `parquet:"stem_id,optional"`
	StemCode              *string `parquet:"stem_code,optional"`
	InstallationMetadataJSON []byte `parquet:"installation_metadata_json,optional"`

	ParametersJSON       []byte `parquet:"parameters_json,optional"`
	ParameterSourcesJSON []byte `parquet:"parameter_sources_json,optional"`

	VhHRMCmHr              *float64 `parquet:"vh_hrm_cm_hr,optional"`
	VhTmaxCmHr             *float64 `parquet:"vh_tmax_cm_hr,optional"`
	VcHRMCmHr              *float64 `parquet:"vc_hrm_cm_hr,optional"`
	VcTmaxCmHr             *float64 `parquet:"vc_tmax_cm_hr,optional"`
	JHRMCmHr               *float64 `parquet:"j_hrm_cm_hr,optional"`
	JTmaxCmHr              *float64 `parquet:"j_tmax_cm_hr,optional"`
	CalculationMethodUsed  string   `parquet:"calculation_method_used,optional"`
	SapFluxDensityJDMACmHr *float64 `parquet:"sap_flux_density_j_dma_cm_hr,optional"`

	Quality            *string `parquet:"quality,optional"`
	QualityExplanation *string `parquet:"quality_explanation,optional"`
}
