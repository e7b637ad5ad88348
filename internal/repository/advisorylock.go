// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"database/sql"

	"github.com/fieldlab-science/sapfluxcore/pkg/log"
)

// transactionLockKey is the process-wide pg_advisory_lock key guarding
// the transaction orchestrator: ASCII "SPFLUX" packed into a
// 48-bit int.
const transactionLockKey int64 = 0x5350464C5558

// AdvisoryLock holds a session-scoped pg_advisory_lock for the lifetime
// of one transaction. It pins a single connection out of the pool (the
// lock is connection-scoped in Postgres), so Release must always be
// called, including on panic, to return the connection.
type AdvisoryLock struct {
	conn *sql.Conn
}

// AcquireTransactionLock blocks until the process-wide advisory lock is
// granted on a dedicated connection.
func AcquireTransactionLock(ctx context.Context) (*AdvisoryLock, error) {
	conn, err := GetConnection().DB.Conn(ctx)
	if err != nil {
		return nil, connError("advisory lock: acquire connection", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", transactionLockKey); err != nil {
		conn.Close()
		return nil, connError("advisory lock: pg_advisory_lock", err)
	}
	return &AdvisoryLock{conn: conn}, nil
}

// Release unlocks and returns the pinned connection to the pool. It is
// safe to call from a deferred scope guard even after a panic; failures
// are logged, not returned, since a caller unwinding from a panic has no
// good way to act on a second error.
func (l *AdvisoryLock) Release(ctx context.Context) {
	if l == nil || l.conn == nil {
		return
	}
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", transactionLockKey); err != nil {
		log.Errorf("advisory lock: pg_advisory_unlock failed, connection will be dropped: %v", err)
	}
	if err := l.conn.Close(); err != nil {
		log.Warnf("advisory lock: closing pinned connection: %v", err)
	}
}
