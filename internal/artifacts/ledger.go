// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package artifacts

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const runKeyPrefix = "run:"

// ErrNoRuns is returned by Latest when no matching run has been recorded.
var ErrNoRuns = errors.New("no recorded runs")

// Ledger records completed runs in BadgerDB so downstream stages and the
// `runs` command can resolve them without scanning the filesystem.
type Ledger struct {
	db *badger.DB
}

// OpenLedger opens the ledger at path. An empty path opens an in-memory
// ledger, used by one-shot runs and tests.
func OpenLedger(path string) (*Ledger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends a completed run. Keys embed the completion slug so a prefix
// scan returns runs in chronological order.
func (l *Ledger) Record(meta RunMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	key := []byte(runKeyPrefix + TimestampSlug(meta.CompletedAt) + ":" + meta.RunID)
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// List returns all recorded runs, newest first, optionally filtered by stage.
func (l *Ledger) List(stage string) ([]RunMetadata, error) {
	var runs []RunMetadata

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var meta RunMetadata
				if err := json.Unmarshal(val, &meta); err != nil {
					return fmt.Errorf("decode run record: %w", err)
				}
				if stage == "" || meta.Stage == stage {
					runs = append(runs, meta)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CompletedAt.After(runs[j].CompletedAt)
	})
	return runs, nil
}

// Latest returns the most recent run for a stage.
func (l *Ledger) Latest(stage string) (*RunMetadata, error) {
	runs, err := l.List(stage)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		if stage == "" {
			return nil, fmt.Errorf("%w: ledger is empty", ErrNoRuns)
		}
		return nil, fmt.Errorf("%w for stage %s", ErrNoRuns, strings.TrimSpace(stage))
	}
	return &runs[0], nil
}
