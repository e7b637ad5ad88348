// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package repository is the relational-store layer: connection
// management, schema migrations, and the sqlx/squirrel query builders
// that load the execution context and persist transaction outcomes.
package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

var (
	dbConnOnce     sync.Once
	dbConnInstance *DBConnection
)

// DBConnection wraps the singleton sqlx handle used throughout the
// repository package.
type DBConnection struct {
	DB *sqlx.DB
}

// Connect opens the process-wide Postgres connection pool and runs the
// pending schema migrations. It is idempotent: later calls after the
// first are no-ops.
func Connect(dsn string) {
	dbConnOnce.Do(func() {
		dbHandle, err := sqlx.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("repository: sqlx.Open() error: %v", err)
		}

		dbHandle.SetConnMaxLifetime(time.Minute * 3)
		dbHandle.SetMaxOpenConns(10)
		dbHandle.SetMaxIdleConns(10)

		if err := dbHandle.Ping(); err != nil {
			log.Fatalf("repository: database unreachable: %v", err)
		}

		dbConnInstance = &DBConnection{DB: dbHandle}
		MigrateDB(dsn)
	})
}

// GetConnection returns the singleton connection, fataling if Connect was
// never called.
func GetConnection() *DBConnection {
	if dbConnInstance == nil {
		log.Fatalf("repository: database connection not initialized")
	}
	return dbConnInstance
}

// connError wraps a repository-layer error with the operation that failed.
func connError(op string, err error) error {
	return fmt.Errorf("repository: %s: %w", op, err)
}
