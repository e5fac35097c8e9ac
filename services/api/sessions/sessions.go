// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sessions persists tutoring conversations in an embedded
// BadgerDB so that hints can continue across requests and websocket
// reconnects. Entries carry a TTL; an abandoned session disappears on
// its own after thirty days.
package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept. Every append
// refreshes the window.
const DefaultTTL = 30 * 24 * time.Hour

const (
	turnKeyPrefix = "session/"
	metaKeyPrefix = "session-meta/"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// Turn is one message in a tutoring conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Meta summarizes one stored session.
type Meta struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     int       `json:"turns"`
}

// Store is a BadgerDB-backed session log. Safe for concurrent use.
type Store struct {
	db  *badger.DB
	ttl time.Duration

	gcStop   chan struct{}
	gcDone   chan struct{}
	stopOnce sync.Once
}

// badgerLogger adapts slog to BadgerDB's Logger interface. Badger's
// info output is chatty table bookkeeping, so it lands at debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens a persistent session store at path, creating the
// directory if needed, and starts a value-log GC loop so expired
// sessions actually release disk space.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: slog.Default()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	s := newStore(db)
	s.gcDone = make(chan struct{})
	go s.gcLoop()
	return s, nil
}

// OpenInMemory opens a store that keeps nothing on disk. Used by
// tests and by deployments that do not want session persistence.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory session database: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *badger.DB) *Store {
	return &Store{
		db:     db,
		ttl:    DefaultTTL,
		gcStop: make(chan struct{}),
	}
}

func (s *Store) gcLoop() {
	defer close(s.gcDone)
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				slog.Warn("Session store GC failed", "error", err)
			}
		}
	}
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	var first bool
	s.stopOnce.Do(func() {
		close(s.gcStop)
		first = true
	})
	if !first {
		return nil
	}
	if s.gcDone != nil {
		<-s.gcDone
	}
	return s.db.Close()
}

func turnKey(sessionID string, seq int) []byte {
	// Zero-padded so lexicographic iteration is chronological.
	return []byte(fmt.Sprintf("%s%s/%012d", turnKeyPrefix, sessionID, seq))
}

func metaKey(sessionID string) []byte {
	return []byte(metaKeyPrefix + sessionID)
}

// Append stores turns at the end of a session, creating the session
// on first use. The session's TTL window restarts on every append.
func (s *Store) Append(sessionID, problemID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	// Concurrent appends to one session conflict at commit; retry a
	// few times before giving up.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.appendOnce(sessionID, problemID, turns)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) appendOnce(sessionID, problemID string, turns []Turn) error {
	return s.db.Update(func(txn *badger.Txn) error {
		now := time.Now().UTC()

		meta := Meta{ID: sessionID, ProblemID: problemID, CreatedAt: now}
		item, err := txn.Get(metaKey(sessionID))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("decode session meta: %w", err)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		for i, turn := range turns {
			if turn.CreatedAt.IsZero() {
				turn.CreatedAt = now
			}
			val, err := json.Marshal(turn)
			if err != nil {
				return fmt.Errorf("encode turn: %w", err)
			}
			entry := badger.NewEntry(turnKey(sessionID, meta.Turns+i), val).WithTTL(s.ttl)
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
		}

		meta.Turns += len(turns)
		meta.UpdatedAt = now
		if meta.ProblemID == "" {
			meta.ProblemID = problemID
		}
		val, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode session meta: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(metaKey(sessionID), val).WithTTL(s.ttl))
	})
}

// History returns a session's turns in order. Unknown sessions return
// ErrNotFound.
func (s *Store) History(sessionID string) ([]Turn, error) {
	var turns []Turn
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(sessionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}

		prefix := []byte(turnKeyPrefix + sessionID + "/")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var turn Turn
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &turn)
			}); err != nil {
				return fmt.Errorf("decode turn: %w", err)
			}
			turns = append(turns, turn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// GetMeta returns one session's metadata.
func (s *Store) GetMeta(sessionID string) (Meta, error) {
	var meta Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

// List returns every live session's metadata, most recently updated
// first.
func (s *Store) List() ([]Meta, error) {
	var metas []Meta
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(metaKeyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta Meta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("decode session meta: %w", err)
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a session and all its turns.
func (s *Store) Delete(sessionID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(sessionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}

		prefix := []byte(turnKeyPrefix + sessionID + "/")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete(metaKey(sessionID))
	})
}
