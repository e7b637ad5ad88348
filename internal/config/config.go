// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/fieldlab-science/sapfluxcore/pkg/log"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// Keys holds the effective program configuration. It is populated once by
// Init and read by every other package; nothing mutates it afterwards.
var Keys ProgramConfig = ProgramConfig{
	DBDriver:        "postgres",
	DB:              "postgres://localhost:5432/sapfluxcore?sslmode=disable",
	ObjectStoreKind: "local",
	ObjectStoreDir:  "./var/blobs",
	Validate:        true,
	LogLevel:        "info",
}

// Init reads flagConfigFile (if present), validates it against the embedded
// JSON Schema, and decodes it over Keys. Secrets that should not live in a
// checked-in config file are then layered on from the environment.
func Init(flagConfigFile string) {
	if flagConfigFile != "" {
		raw, err := os.ReadFile(flagConfigFile)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Fatalf("config: reading %s: %s", flagConfigFile, err.Error())
			}
		} else {
			if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
				log.Fatalf("config: validate %s: %s", flagConfigFile, err.Error())
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&Keys); err != nil {
				log.Fatalf("config: decode %s: %s", flagConfigFile, err.Error())
			}
		}
	}

	applyEnvOverrides()

	if Keys.DBDriver != "postgres" {
		log.Fatalf("config: unsupported dbDriver %q, only \"postgres\" is supported", Keys.DBDriver)
	}
}

// applyEnvOverrides layers environment-supplied secrets and connection
// strings over whatever the config file set.
func applyEnvOverrides() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		Keys.DB = v
	}
	if v := os.Getenv("OBJECT_STORE_KIND"); v != "" {
		Keys.ObjectStoreKind = v
	}
	if v := os.Getenv("OBJECT_STORE_DIR"); v != "" {
		Keys.ObjectStoreDir = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		Keys.S3.Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		Keys.S3.Region = v
	}
	if v := os.Getenv("S3_ENDPOINT_URL"); v != "" {
		Keys.S3.EndpointURL = v
	}
	if v := os.Getenv("S3_ACCESS_KEY_ID"); v != "" {
		Keys.S3.AccessKeyID = v
	}
	if v := os.Getenv("S3_SECRET_ACCESS_KEY"); v != "" {
		Keys.S3.SecretAccessKey = v
	}
	if v := os.Getenv("S3_SESSION_TOKEN"); v != "" {
		Keys.S3.SessionToken = v
	}
	if v := os.Getenv("S3_FORCE_PATH_STYLE"); v == "true" || v == "1" {
		Keys.S3.ForcePathStyle = true
	}
	if v := os.Getenv("GIT_COMMIT_HASH"); v != "" {
		Keys.GitCommitHash = v
	}
}
