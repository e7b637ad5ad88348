// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// sapfluxcore is the thin CLI entrypoint that exercises the transaction
// orchestrator end to end: submit a batch of raw files as one
// transaction, or preflight/apply a metadata manifest.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/fieldlab-science/sapfluxcore/internal/config"
	"github.com/fieldlab-science/sapfluxcore/internal/gc"
	"github.com/fieldlab-science/sapfluxcore/internal/ingest"
	"github.com/fieldlab-science/sapfluxcore/internal/manifest"
	"github.com/fieldlab-science/sapfluxcore/internal/repository"
	"github.com/fieldlab-science/sapfluxcore/internal/taskManager"
	"github.com/fieldlab-science/sapfluxcore/internal/transaction"
	"github.com/fieldlab-science/sapfluxcore/pkg/blobstore"
	"github.com/fieldlab-science/sapfluxcore/pkg/log"
	"github.com/fieldlab-science/sapfluxcore/pkg/schema"
)

func main() {
	var (
		flagConfigFile  string
		flagUserID      string
		flagMessage     string
		flagDryRun      bool
		flagManifest    string
		flagApply       bool
		flagGC          bool
		flagGCApply     bool
	)

	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the global config options by those specified in `config.json`")
	flag.StringVar(&flagUserID, "user", "", "User id recorded on the transaction (required unless -manifest or -gc)")
	flag.StringVar(&flagMessage, "message", "", "Optional free-text message recorded on the transaction")
	flag.BoolVar(&flagDryRun, "dry-run", false, "Run the pipeline and print the receipt without writing anything")
	flag.StringVar(&flagManifest, "manifest", "", "Path to a metadata manifest TOML file to preflight (and, with -apply, commit)")
	flag.BoolVar(&flagApply, "apply", false, "Commit the manifest named by -manifest after a successful preflight")
	flag.BoolVar(&flagGC, "gc", false, "Compute the blob-store orphan GC plan and print it")
	flag.BoolVar(&flagGCApply, "gc-apply", false, "Delete the orphans found by -gc instead of only printing the plan")
	flag.Parse()

	config.Init(flagConfigFile)
	log.SetLogLevel(config.Keys.LogLevel)
	log.SetLogDateTime(config.Keys.LogDate)

	repository.Connect(config.Keys.DB)

	store, err := newStore(context.Background())
	if err != nil {
		log.Fatalf("sapfluxcore: %s", err.Error())
	}

	taskManager.Start(store)
	defer taskManager.Shutdown()

	switch {
	case flagManifest != "":
		runManifest(flagManifest, flagApply)
	case flagGC:
		runGC(store, flagGCApply)
	default:
		runTransaction(store, flagUserID, flagMessage, flagDryRun, flag.Args())
	}
}

func newStore(ctx context.Context) (blobstore.Store, error) {
	switch config.Keys.ObjectStoreKind {
	case "noop":
		return blobstore.NewNoopStore(), nil
	case "local":
		return blobstore.NewLocalStore(config.Keys.ObjectStoreDir)
	case "s3":
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:          config.Keys.S3.Bucket,
			Region:          config.Keys.S3.Region,
			EndpointURL:     config.Keys.S3.EndpointURL,
			AccessKeyID:     config.Keys.S3.AccessKeyID,
			SecretAccessKey: config.Keys.S3.SecretAccessKey,
			SessionToken:    config.Keys.S3.SessionToken,
			ForcePathStyle:  config.Keys.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown objectStoreKind %q", config.Keys.ObjectStoreKind)
	}
}

func runTransaction(store blobstore.Store, userID, message string, dryRun bool, paths []string) {
	if userID == "" {
		log.Abortf("sapfluxcore: -user is required")
	}
	if len(paths) == 0 {
		log.Abortf("sapfluxcore: at least one file argument is required")
	}

	files := make([]ingest.FileInput, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Fatalf("sapfluxcore: reading %s: %s", p, err.Error())
		}
		files = append(files, ingest.FileInput{Path: p, Bytes: data})
	}

	req := transaction.Request{UserID: userID, DryRun: dryRun, Files: files}
	if message != "" {
		req.Message = &message
	}

	receipt, err := transaction.ExecuteTransaction(context.Background(), store, time.Now, req)
	if receipt != nil {
		printJSON(receipt)
	}
	if err != nil {
		log.Fatalf("sapfluxcore: transaction rejected: %s", err.Error())
	}
}

func runManifest(path string, apply bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("sapfluxcore: reading manifest %s: %s", path, err.Error())
	}

	var m manifest.Manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		log.Fatalf("sapfluxcore: parsing manifest %s: %s", path, err.Error())
	}

	asJSON, err := json.Marshal(m)
	if err != nil {
		log.Fatalf("sapfluxcore: re-encoding manifest %s: %s", path, err.Error())
	}
	if err := schema.Validate(schema.Manifest, bytes.NewReader(asJSON)); err != nil {
		log.Fatalf("sapfluxcore: validate manifest %s: %s", path, err.Error())
	}

	ctx := context.Background()
	db := repository.GetConnection().DB

	result, err := manifest.Preflight(ctx, db, &m)
	if err != nil {
		log.Fatalf("sapfluxcore: %s", err.Error())
	}
	printJSON(result)

	if !apply {
		return
	}

	applyResult, err := manifest.Apply(ctx, db, &m, nil)
	if err != nil {
		log.Fatalf("sapfluxcore: apply manifest: %s", err.Error())
	}
	printJSON(applyResult)
}

func runGC(store blobstore.Store, apply bool) {
	ctx := context.Background()
	plan, err := gc.BuildPlan(ctx, store)
	if err != nil {
		log.Fatalf("sapfluxcore: gc: %s", err.Error())
	}
	printJSON(plan)

	if !apply {
		return
	}
	if err := gc.Apply(ctx, store, plan); err != nil {
		log.Fatalf("sapfluxcore: gc apply: %s", err.Error())
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("sapfluxcore: encode output: %s", err.Error())
	}
}
