package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoTransaction is returned when a transaction-scoped lock is requested
// outside WithTx.
var ErrNoTransaction = errors.New("advisory lock requires an open transaction")

// AdvisoryLockKey joins parts into the text key hashed by LockAdvisory.
func AdvisoryLockKey(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// LockAdvisory takes a transaction-scoped advisory lock on key. It blocks
// until the lock is granted and is released at commit or rollback.
func LockAdvisory(ctx context.Context, key string) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return ErrNoTransaction
	}
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return nil
}
