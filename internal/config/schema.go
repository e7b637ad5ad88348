// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

// S3Config carries the connection details for an S3-compatible blob store
// backend. Secrets are normally supplied via environment variables rather
// than the checked-in config file; see Init.
type S3Config struct {
	Bucket         string `json:"bucket"`
	Region         string `json:"region"`
	EndpointURL    string `json:"endpointUrl"`
	AccessKeyID    string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken   string `json:"sessionToken"`
	ForcePathStyle bool   `json:"forcePathStyle"`
}

// ProgramConfig is the root configuration shape, validated against
// schemas/config.schema.json on load.
type ProgramConfig struct {
	DBDriver string `json:"dbDriver"`
	DB       string `json:"db"`

	ObjectStoreKind string `json:"objectStoreKind"`
	ObjectStoreDir  string `json:"objectStoreDir"`
	S3              S3Config `json:"s3"`

	Validate bool `json:"validate"`

	// GCSyncInterval, when non-empty, registers a scheduled orphan blob
	// sweep (internal/taskManager); empty disables the schedule and the GC
	// sweep must be triggered manually.
	GCSyncInterval string `json:"gcSyncInterval"`

	LogLevel string `json:"logLevel"`
	LogDate  bool   `json:"logDate"`

	GitCommitHash string `json:"-"`
}
