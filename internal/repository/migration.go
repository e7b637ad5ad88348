// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

//go:embed migrations/postgres/*.sql
var migrationFiles embed.FS

// MigrateDB applies every pending golang-migrate migration embedded under
// migrations/postgres, bringing a fresh or older database up to the
// schema the running binary expects.
func MigrateDB(dsn string) {
	d, err := iofs.New(migrationFiles, "migrations/postgres")
	if err != nil {
		log.Fatalf("repository: embedded migration source: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, "postgres://"+stripScheme(dsn))
	if err != nil {
		log.Fatalf("repository: migrate.New: %v", err)
	}
	_ = postgres.Postgres{} // ensure the postgres driver package is linked

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("repository: migration failed: %v", err)
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Warnf("repository: closing migration source: %v", srcErr)
	}
	if dbErr != nil {
		log.Warnf("repository: closing migration db handle: %v", dbErr)
	}
}

// stripScheme removes a leading "postgres://" or "postgresql://" from a
// connection string, since golang-migrate's postgres driver wants the
// scheme applied exactly once.
func stripScheme(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if len(dsn) > len(prefix) && dsn[:len(prefix)] == prefix {
			return dsn[len(prefix):]
		}
	}
	return dsn
}
