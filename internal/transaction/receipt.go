// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transaction implements the transaction orchestrator: the
// state machine that holds the process-wide advisory lock and runs
// ingestion, the pipeline, and publication in order, producing a receipt
// and tearing down atomically on any failure.
package transaction

import (
	"github.com/fieldlab-science/sapfluxcore/internal/ingest"
	"github.com/fieldlab-science/sapfluxcore/internal/pipeline"
)

// PipelineStatus is the receipt's summary of how far the pipeline got.
type PipelineStatus string

const (
	// PipelineSkipped means ingestion produced no parsed file (every
	// input was a duplicate or failed to parse); the pipeline never ran.
	PipelineSkipped PipelineStatus = "skipped"
	PipelineSuccess PipelineStatus = "success"
	PipelineFailed  PipelineStatus = "failed"
)

// PipelineReceipt is the pipeline section of a Receipt.
type PipelineReceipt struct {
	Status            PipelineStatus              `json:"status"`
	RowCount          *int                        `json:"row_count,omitempty"`
	Error             *string                     `json:"error,omitempty"`
	SkippedChunks     []pipeline.SkippedChunk     `json:"skipped_chunks,omitempty"`
	QualitySummary    *pipeline.QualitySummary    `json:"quality_summary,omitempty"`
	ProvenanceSummary *pipeline.ProvenanceSummary `json:"provenance_summary,omitempty"`
	RecordSummary     *pipeline.RecordSummary     `json:"record_summary,omitempty"`
}

// Receipt is the caller-facing result of ExecuteTransaction.
type Receipt struct {
	TransactionID    *string         `json:"transaction_id,omitempty"`
	DryRun           bool            `json:"dry_run"`
	Files            []ingest.FileReport `json:"files"`
	IngestionSummary ingest.Summary  `json:"ingestion_summary"`
	Pipeline         PipelineReceipt `json:"pipeline"`
}
