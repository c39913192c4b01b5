// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package events carries interaction events from the engine to in-process
// consumers, with a durable write-ahead log in front of the bus.
//
// The lifecycle is write-confirm-compact: an interaction is persisted to
// BadgerDB before it is published, confirmed once the bus accepts it, and
// confirmed entries are dropped at the next compaction. Unconfirmed
// entries survive a crash and are replayed on startup.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/metrics"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// ErrWALClosed rejects operations after Close.
var ErrWALClosed = errors.New("wal closed")

// Entry is one logged interaction awaiting publish confirmation.
type Entry struct {
	ID          string                 `json:"id"`
	Interaction models.UserInteraction `json:"interaction"`
	CreatedAt   time.Time              `json:"createdAt"`
	Confirmed   bool                   `json:"confirmed"`
}

// WALConfig tunes the interaction write-ahead log.
type WALConfig struct {
	// Path is the BadgerDB directory.
	Path string

	// SyncWrites forces fsync per write. Durable but slower.
	SyncWrites bool

	// Retention is the TTL applied to entries. Zero keeps them until
	// compaction.
	Retention time.Duration
}

// WAL is the durable interaction log backed by BadgerDB.
type WAL struct {
	db  *badger.DB
	cfg WALConfig
	log zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	pending int64
}

// OpenWAL opens (or creates) the write-ahead log at the configured path.
func OpenWAL(cfg WALConfig, log zerolog.Logger) (*WAL, error) {
	if cfg.Path == "" {
		return nil, errors.New("wal path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	w := &WAL{
		db:  db,
		cfg: cfg,
		log: log.With().Str("component", "interaction_wal").Logger(),
	}
	w.pending = w.countPrefix(prefixPending)
	metrics.WALPending.Set(float64(w.pending))

	w.log.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Int64("pending", w.pending).
		Msg("interaction WAL opened")
	return w, nil
}

// Write persists an interaction before publishing and returns its entry id.
func (w *WAL) Write(_ context.Context, in models.UserInteraction) (string, error) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return "", ErrWALClosed
	}
	w.mu.RUnlock()

	entry := Entry{
		ID:          uuid.NewString(),
		Interaction: in,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
		if w.cfg.Retention > 0 {
			e = e.WithTTL(w.cfg.Retention)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("write wal entry: %w", err)
	}

	w.mu.Lock()
	w.pending++
	metrics.WALPending.Set(float64(w.pending))
	w.mu.Unlock()

	return entry.ID, nil
}

// Confirm moves an entry from pending to confirmed. Confirming an unknown
// id is a no-op, which makes replay after a partial confirm safe.
func (w *WAL) Confirm(_ context.Context, entryID string) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWALClosed
	}
	w.mu.RUnlock()

	moved := false
	err := w.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixPending + entryID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		moved = true
		return txn.Set([]byte(prefixConfirmed+entryID), data)
	})
	if err != nil {
		return fmt.Errorf("confirm wal entry: %w", err)
	}

	if moved {
		w.mu.Lock()
		if w.pending > 0 {
			w.pending--
		}
		metrics.WALPending.Set(float64(w.pending))
		w.mu.Unlock()
	}
	return nil
}

// Pending returns every unconfirmed entry, for startup replay.
func (w *WAL) Pending(_ context.Context) ([]Entry, error) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil, ErrWALClosed
	}
	w.mu.RUnlock()

	var entries []Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending entries: %w", err)
	}
	return entries, nil
}

// Compact drops confirmed entries.
func (w *WAL) Compact(_ context.Context) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWALClosed
	}
	w.mu.RUnlock()

	var keys [][]byte
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(prefixConfirmed)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan confirmed entries: %w", err)
	}

	for _, key := range keys {
		err := w.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return fmt.Errorf("delete confirmed entry: %w", err)
		}
	}

	if len(keys) > 0 {
		w.log.Debug().Int("dropped", len(keys)).Msg("wal compacted")
	}
	return nil
}

// PendingCount returns the number of unconfirmed entries.
func (w *WAL) PendingCount() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pending
}

// Close shuts the log down. Further operations fail with ErrWALClosed.
func (w *WAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.db.Close()
}

func (w *WAL) countPrefix(prefix string) int64 {
	var count int64
	_ = w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if strings.HasPrefix(string(it.Item().Key()), prefix) {
				count++
			}
		}
		return nil
	})
	return count
}
