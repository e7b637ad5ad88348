// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package taskManager registers the optional scheduled background jobs:
// today, only the orphan blob sweep, gated by
// config.Keys.GCSyncInterval.
package taskManager

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/fieldlab-science/sapfluxcore/internal/config"
	"github.com/fieldlab-science/sapfluxcore/internal/gc"
	"github.com/fieldlab-science/sapfluxcore/pkg/blobstore"
	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

var s gocron.Scheduler

// Start creates the scheduler and registers every job config.Keys enables.
// Safe to call with nothing enabled: the scheduler then just idles.
func Start(store blobstore.Store) {
	var err error
	s, err = gocron.NewScheduler()
	if err != nil {
		log.Fatalf("taskManager: create gocron scheduler: %s", err.Error())
	}

	if config.Keys.GCSyncInterval != "" {
		registerGCSweep(store, config.Keys.GCSyncInterval)
	}

	s.Start()
}

// Shutdown stops the scheduler, letting any in-flight job finish.
func Shutdown() {
	if s == nil {
		return
	}
	if err := s.Shutdown(); err != nil {
		log.Warnf("taskManager: shutdown: %s", err.Error())
	}
}

func registerGCSweep(store blobstore.Store, interval string) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		log.Warnf("taskManager: invalid gcSyncInterval %q, GC sweep not scheduled: %s", interval, err.Error())
		return
	}

	log.Infof("taskManager: scheduling GC sweep every %s", d)
	if _, err := s.NewJob(
		gocron.DurationJob(d),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := gc.Sweep(ctx, store); err != nil {
				log.Errorf("taskManager: GC sweep failed: %s", err.Error())
			}
		}),
	); err != nil {
		log.Warnf("taskManager: register GC sweep job: %s", err.Error())
	}
}
