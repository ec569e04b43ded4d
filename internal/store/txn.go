package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	// txnMaxAttempts bounds conflict retries before giving up.
	txnMaxAttempts = 5
	// txnBaseBackoff is the backoff unit between retries; each attempt
	// waits a jittered multiple of it.
	txnBaseBackoff = 5 * time.Millisecond
)

// RunTransaction executes fn inside a read-write transaction, retrying
// on serialization conflicts. Badger aborts a transaction whose read
// set was written by a concurrent commit but does not retry it, so we
// loop here with jittered backoff. fn may run multiple times and must
// be free of side effects outside the transaction.
func (s *Store) RunTransaction(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := range txnMaxAttempts {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}

		backoff := time.Duration(attempt+1) * txnBaseBackoff
		jitter := time.Duration(rand.Int64N(int64(txnBaseBackoff)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.logger != nil {
		s.logger.Warn("transaction conflict retries exhausted", "attempts", txnMaxAttempts)
	}
	return ErrTxnConflict.WithCause(err)
}

// getTxn reads and unmarshals one record inside a transaction.
// Returns badger.ErrKeyNotFound untouched so callers can branch on absence.
func getTxn(txn *badger.Txn, key string, dest any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setTxn marshals and writes one record inside a transaction.
func setTxn(txn *badger.Txn, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// existsTxn checks key presence inside a transaction. The read still
// joins the transaction's read set, so a concurrent write to the key
// conflicts the commit.
func existsTxn(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
