// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldlab-science/sapfluxcore/internal/config"
	"github.com/fieldlab-science/sapfluxcore/internal/ingest"
	"github.com/fieldlab-science/sapfluxcore/internal/pipeline"
	"github.com/fieldlab-science/sapfluxcore/internal/publication"
	"github.com/fieldlab-science/sapfluxcore/internal/repository"
	"github.com/fieldlab-science/sapfluxcore/pkg/blobstore"
	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

// ErrNoFiles is returned when a request carries zero input files; this
// requires at least one.
var ErrNoFiles = errors.New("transaction: at least one file is required")

// pipelineID identifies which version of the transformation chain
// produced a run, stamped onto runs.pipeline_id for audit purposes.
const pipelineID = "sapfluxcore-core-v1"

// topReasonCount bounds how many entries the quality/provenance summaries
// carry in the receipt.
const topReasonCount = 10

// Request is the caller-facing input to ExecuteTransaction.
type Request struct {
	UserID  string
	Message *string
	DryRun  bool
	Files   []ingest.FileInput
}

// Clock lets tests and callers control "now" without reaching for a
// package-level mutable clock; production callers pass time.Now.
type Clock func() time.Time

// ExecuteTransaction runs the full orchestration algorithm: acquire the
// process-wide advisory lock, batch-ingest the submitted files, run the
// pipeline if anything parsed, and publish the result under one
// all-or-nothing database transaction unless this is a dry run. The
// lock is released on every exit path, including early returns on error.
func ExecuteTransaction(ctx context.Context, store blobstore.Store, clock Clock, req Request) (*Receipt, error) {
	if len(req.Files) == 0 {
		return nil, ErrNoFiles
	}

	lock, err := repository.AcquireTransactionLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction: acquire advisory lock: %w", err)
	}
	defer lock.Release(ctx)

	var transactionID string
	if !req.DryRun {
		transactionID = uuid.NewString()
		if err := repository.InsertPendingTransaction(ctx, transactionID, req.UserID, req.Message); err != nil {
			return nil, fmt.Errorf("transaction: insert pending transaction: %w", err)
		}
	}

	receipt, pipelineErr := run(ctx, store, clock, req, transactionID)
	if !req.DryRun {
		outcome := "ACCEPTED"
		if pipelineErr != nil {
			outcome = "REJECTED"
		}
		if err := repository.FinalizeTransaction(ctx, transactionID, outcome, receipt); err != nil {
			log.Errorf("transaction: %s: finalize outcome %s failed: %v", transactionID, outcome, err)
			if pipelineErr == nil {
				pipelineErr = err
			}
		}
	}

	if pipelineErr != nil {
		return receipt, pipelineErr
	}
	return receipt, nil
}

// run executes ingestion, the pipeline, and (for a real transaction)
// publication, building the receipt along the way. It returns a non-nil
// error only for failures that should REJECT the transaction; a receipt
// is always returned so the caller can surface partial information (file
// reports, skipped chunks) even on failure.
func run(ctx context.Context, store blobstore.Store, clock Clock, req Request, transactionID string) (*Receipt, error) {
	knownHashes, err := repository.KnownHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction: load known hashes: %w", err)
	}

	batcher := ingest.NewBatcher()
	ingestResult := batcher.Run(req.Files, knownHashes)
	ingestionSummary := ingest.Summarize(ingestResult.Reports)

	receipt := &Receipt{
		DryRun:           req.DryRun,
		Files:            ingestResult.Reports,
		IngestionSummary: ingestionSummary,
	}
	if transactionID != "" {
		receipt.TransactionID = &transactionID
	}

	if len(ingestResult.Parsed) == 0 {
		receipt.Pipeline = PipelineReceipt{Status: PipelineSkipped}
		return receipt, nil
	}

	ec, err := repository.LoadExecutionContext(ctx, clock)
	if err != nil {
		return nil, fmt.Errorf("transaction: load execution context: %w", err)
	}

	result, err := pipeline.Run(ingestResult.Parsed, ec)
	if err != nil {
		msg := err.Error()
		receipt.Pipeline = PipelineReceipt{Status: PipelineFailed, Error: &msg}
		return receipt, err
	}

	rowCount := len(result.Observations)
	qualitySummary := pipeline.SummarizeQuality(result.Observations, topReasonCount)
	provenanceSummary := pipeline.SummarizeProvenance(result.Observations, topReasonCount)
	recordSummary := pipeline.SummarizeRecords(result.Observations)

	receipt.Pipeline = PipelineReceipt{
		Status:            PipelineSuccess,
		RowCount:          &rowCount,
		SkippedChunks:     result.Skipped,
		QualitySummary:    &qualitySummary,
		ProvenanceSummary: &provenanceSummary,
		RecordSummary:     &recordSummary,
	}

	if req.DryRun {
		return receipt, nil
	}

	rawBytesByHash := make(map[string][]byte, len(ingestResult.NewHashes))
	for _, f := range req.Files {
		rawBytesByHash[ingest.HashBytes(f.Bytes)] = f.Bytes
	}

	if err := publish(ctx, store, clock, transactionID, ingestResult.NewHashes, rawBytesByHash, result, receipt); err != nil {
		msg := err.Error()
		receipt.Pipeline.Status = PipelineFailed
		receipt.Pipeline.Error = &msg
		return receipt, err
	}

	return receipt, nil
}

// publish uploads new raw blobs, serializes the
// Parquet dataset and cartridge, and commit the raw-file/run/output rows
// plus the is_latest flip in one database transaction.
func publish(ctx context.Context, store blobstore.Store, clock Clock, transactionID string, newHashes []string, rawBytesByHash map[string][]byte, result *pipeline.Result, receipt *Receipt) error {
	if err := uploadRawFiles(ctx, store, newHashes, rawBytesByHash); err != nil {
		return fmt.Errorf("upload raw files: %w", err)
	}

	observations := pipeline.Unwrap(result.Observations)
	parquetBytes, err := publication.WriteParquet(observations)
	if err != nil {
		return err
	}

	cartridgeBytes, err := publication.BuildCartridge(clock(), receipt.IngestionSummary, receipt.Pipeline)
	if err != nil {
		return err
	}

	outputID := uuid.NewString()
	runID := uuid.NewString()
	outputKey := blobstore.OutputKey(outputID)
	cartridgeKey := blobstore.CartridgeKey(outputID)

	if err := store.Put(ctx, outputKey, parquetBytes); err != nil {
		return fmt.Errorf("upload parquet output: %w", err)
	}
	if err := store.Put(ctx, cartridgeKey, cartridgeBytes); err != nil {
		return fmt.Errorf("upload cartridge: %w", err)
	}

	tx, err := repository.BeginAcceptedTransaction(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnf("transaction: rollback after failed publish: %v", rbErr)
			}
		}
	}()

	if err := repository.InsertRawFiles(ctx, tx, transactionID, newHashes); err != nil {
		return err
	}

	var gitCommitHash *string
	if config.Keys.GitCommitHash != "" {
		gitCommitHash = &config.Keys.GitCommitHash
	}
	if err := repository.InsertRun(ctx, tx, runID, transactionID, pipelineID, "success", gitCommitHash, receipt.Pipeline); err != nil {
		return err
	}
	if err := repository.ClearLatestOutputs(ctx, tx); err != nil {
		return err
	}
	if err := repository.InsertOutput(ctx, tx, outputID, runID, outputKey, cartridgeKey, int64(len(observations))); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publication transaction: %w", err)
	}
	committed = true
	return nil
}

// uploadRawFiles puts every newly seen raw file's exact bytes under its
// content-addressed key; Put is idempotent, so a concurrent or prior
// partial upload of the same hash is a no-op.
func uploadRawFiles(ctx context.Context, store blobstore.Store, newHashes []string, rawBytesByHash map[string][]byte) error {
	for _, hash := range newHashes {
		data, ok := rawBytesByHash[hash]
		if !ok {
			return fmt.Errorf("no raw bytes recorded for hash %s", hash)
		}
		if err := store.Put(ctx, blobstore.RawFileKey(hash), data); err != nil {
			return fmt.Errorf("put %s: %w", hash, err)
		}
	}
	return nil
}
