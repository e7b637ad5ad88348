// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// BeginAcceptedTransaction opens the sqlx transaction that wraps the
// all-or-nothing commit step: raw-file inserts, the run row,
// the is_latest flip, and the output row. Callers must Commit or
// Rollback.
func BeginAcceptedTransaction(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := GetConnection().DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, connError("begin transaction", err)
	}
	return tx, nil
}

// InsertPendingTransaction records a transactions row with outcome
// PENDING before the pipeline runs, so a crash mid-run leaves an
// inspectable trace.
func InsertPendingTransaction(ctx context.Context, transactionID, userID string, message *string) error {
	sqlStr, args, err := psql.Insert("transactions").
		Columns("transaction_id", "user_id", "message", "outcome").
		Values(transactionID, userID, message, "PENDING").
		ToSql()
	if err != nil {
		return connError("build insert pending transaction", err)
	}
	if _, err := GetConnection().DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return connError("insert pending transaction", err)
	}
	return nil
}

// FinalizeTransaction updates a transactions row to its terminal outcome
// with the embedded receipt JSON, outside of (after) the accepted-path
// transaction, or standalone for a rejected/skipped run.
func FinalizeTransaction(ctx context.Context, transactionID, outcome string, receipt interface{}) error {
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return connError("marshal receipt", err)
	}
	sqlStr, args, err := psql.Update("transactions").
		Set("outcome", outcome).
		Set("receipt", receiptJSON).
		Where(sq.Eq{"transaction_id": transactionID}).
		ToSql()
	if err != nil {
		return connError("build finalize transaction", err)
	}
	if _, err := GetConnection().DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return connError("finalize transaction", err)
	}
	return nil
}

// InsertRawFiles inserts one row per newly seen hash, tagging them with
// the ingesting transaction, skipping any hash already present (a file
// can only ever be ingested once).
func InsertRawFiles(ctx context.Context, tx *sqlx.Tx, transactionID string, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	builder := psql.Insert("raw_files").Columns("file_hash", "ingesting_transaction_id")
	for _, h := range hashes {
		builder = builder.Values(h, transactionID)
	}
	sqlStr, args, err := builder.Suffix("ON CONFLICT (file_hash) DO NOTHING").ToSql()
	if err != nil {
		return connError("build insert raw_files", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return connError("insert raw_files", err)
	}
	return nil
}

// InsertRun inserts the run row for a successful or skipped publication.
func InsertRun(ctx context.Context, tx *sqlx.Tx, runID, transactionID, pipelineID, status string, gitCommitHash *string, runLog interface{}) error {
	logJSON, err := json.Marshal(runLog)
	if err != nil {
		return connError("marshal run_log", err)
	}
	sqlStr, args, err := psql.Insert("runs").
		Columns("run_id", "triggering_transaction_id", "pipeline_id", "status", "git_commit_hash", "run_log").
		Values(runID, transactionID, pipelineID, status, gitCommitHash, logJSON).
		ToSql()
	if err != nil {
		return connError("build insert run", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return connError("insert run", err)
	}
	return nil
}

// ClearLatestOutputs flips is_latest off every existing output row ahead
// of inserting the new one, keeping the "exactly one is_latest" invariant
// inside the same DB transaction.
func ClearLatestOutputs(ctx context.Context, tx *sqlx.Tx) error {
	sqlStr, args, err := psql.Update("outputs").Set("is_latest", false).Where(sq.Eq{"is_latest": true}).ToSql()
	if err != nil {
		return connError("build clear is_latest", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return connError("clear is_latest", err)
	}
	return nil
}

// InsertOutput inserts the new output row with is_latest = true.
func InsertOutput(ctx context.Context, tx *sqlx.Tx, outputID, runID, objectStorePath, cartridgePath string, rowCount int64) error {
	sqlStr, args, err := psql.Insert("outputs").
		Columns("output_id", "run_id", "object_store_path", "reproducibility_cartridge_path", "row_count", "is_latest").
		Values(outputID, runID, objectStorePath, cartridgePath, rowCount, true).
		ToSql()
	if err != nil {
		return connError("build insert output", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return connError("insert output", err)
	}
	return nil
}

// ReferencedObjectKeys returns every blob-store key the relational store
// still references, for the GC sweeper's orphan computation.
func ReferencedObjectKeys(ctx context.Context) (map[string]bool, error) {
	refs := map[string]bool{}

	var hashes []string
	sqlStr, args, err := psql.Select("file_hash").From("raw_files").ToSql()
	if err != nil {
		return nil, connError("build raw_files reference query", err)
	}
	if err := GetConnection().DB.SelectContext(ctx, &hashes, sqlStr, args...); err != nil {
		return nil, connError("load raw_files references", err)
	}
	for _, h := range hashes {
		refs["raw-files/"+h] = true
	}

	type outPaths struct {
		ObjectStorePath              string `db:"object_store_path"`
		ReproducibilityCartridgePath string `db:"reproducibility_cartridge_path"`
	}
	var outputs []outPaths
	sqlStr, args, err = psql.Select("object_store_path", "reproducibility_cartridge_path").From("outputs").ToSql()
	if err != nil {
		return nil, connError("build outputs reference query", err)
	}
	if err := GetConnection().DB.SelectContext(ctx, &outputs, sqlStr, args...); err != nil {
		return nil, connError("load outputs references", err)
	}
	for _, o := range outputs {
		refs[o.ObjectStorePath] = true
		refs[o.ReproducibilityCartridgePath] = true
	}

	return refs, nil
}
