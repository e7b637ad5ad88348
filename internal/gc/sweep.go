// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gc implements the orphan blob sweep: object-store keys
// under raw-files/, outputs/, and repro-cartridges/ that no relational row
// references any longer (superseded outputs, abandoned dry runs).
package gc

import (
	"context"
	"fmt"

	"github.com/fieldlab-science/sapfluxcore/internal/repository"
	"github.com/fieldlab-science/sapfluxcore/pkg/blobstore"
	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

// Plan is the set of blob-store keys a sweep would delete, computed
// without touching the store, so a caller can review before Apply.
type Plan struct {
	OrphanKeys []string
}

var sweptPrefixes = []string{
	blobstore.PrefixRawFiles,
	blobstore.PrefixOutputs,
	blobstore.PrefixReproCartridges,
}

// BuildPlan lists every key in the three managed prefixes and diffs it
// against the set of keys the relational store still references.
func BuildPlan(ctx context.Context, store blobstore.Store) (*Plan, error) {
	referenced, err := repository.ReferencedObjectKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("gc: load referenced keys: %w", err)
	}

	var orphans []string
	for _, prefix := range sweptPrefixes {
		keys, err := store.ListPrefix(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("gc: list prefix %q: %w", prefix, err)
		}
		for _, k := range keys {
			if !referenced[k] {
				orphans = append(orphans, k)
			}
		}
	}

	return &Plan{OrphanKeys: orphans}, nil
}

// Apply deletes every key in the plan, continuing past individual
// failures and returning the first error encountered (if any) after all
// deletions have been attempted, so one bad key never blocks the rest of
// the sweep.
func Apply(ctx context.Context, store blobstore.Store, plan *Plan) error {
	var firstErr error
	for _, key := range plan.OrphanKeys {
		if err := store.Delete(ctx, key); err != nil {
			log.Errorf("gc: delete %q: %v", key, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Infof("gc: deleted orphan %q", key)
	}
	return firstErr
}

// Sweep runs BuildPlan followed by Apply, for the scheduled path where
// nobody reviews the plan first.
func Sweep(ctx context.Context, store blobstore.Store) (*Plan, error) {
	plan, err := BuildPlan(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(plan.OrphanKeys) == 0 {
		return plan, nil
	}
	log.Infof("gc: sweeping %d orphan object(s)", len(plan.OrphanKeys))
	return plan, Apply(ctx, store, plan)
}
