// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package publication implements the atomic publication step:
// serializing the pipeline output to Parquet and bundling a reproducibility
// cartridge zip alongside it, ready for the orchestrator to upload and
// register under a new output_id.
package publication

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldlab-science/sapfluxcore/pkg/archive/parquet"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

// CartridgeMetadata is the metadata.json payload bundled into every
// reproducibility cartridge: the ingestion and pipeline summaries that
// produced the accompanying Parquet dataset, stamped with the moment the
// cartridge was built.
type CartridgeMetadata struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Ingestion   interface{} `json:"ingestion_summary"`
	Pipeline    interface{} `json:"pipeline_summary"`
}

const cartridgeReadme = `This archive is the reproducibility cartridge for one sapfluxcore
publication. It accompanies a Parquet dataset registered under the same
output_id and contains:

  metadata.json  the ingestion and pipeline summaries that produced the
                 dataset, including per-parameter provenance and quality
                 breakdowns.

The Parquet file itself is stored separately in the blob store under
outputs/<output_id>.parquet; this cartridge does not duplicate the row
data, only the metadata needed to understand how it was produced.
`

// WriteParquet serializes a pipeline run's observations to a single
// Zstd-compressed Parquet file.
func WriteParquet(obs []schema.Observation) ([]byte, error) {
	data, err := parquet.WriteObservations(obs)
	if err != nil {
		return nil, fmt.Errorf("publication: write parquet: %w", err)
	}
	return data, nil
}

// BuildCartridge assembles the reproducibility cartridge zip: a
// metadata.json with the given summaries and a fixed README.txt,
// Deflate-compressed.
func BuildCartridge(now time.Time, ingestionSummary, pipelineSummary interface{}) ([]byte, error) {
	meta := CartridgeMetadata{GeneratedAt: now, Ingestion: ingestionSummary, Pipeline: pipelineSummary}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("publication: marshal cartridge metadata: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeZipEntry(zw, "metadata.json", metaJSON); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "README.txt", []byte(cartridgeReadme)); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("publication: close cartridge zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("publication: create cartridge entry %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("publication: write cartridge entry %q: %w", name, err)
	}
	return nil
}
