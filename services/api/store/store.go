// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store holds the in-memory problem database backed by a
// problems.json file, with optional hot reload when the file changes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gaolin1/math-olympic-question-search/pkg/validation"
	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
)

// ErrNotFound is returned when a problem ID is not in the store.
var ErrNotFound = errors.New("problem not found")

// Atomic saves arrive as a rename/create/write burst; the window lets
// the burst settle before a single reload.
const defaultDebounce = 500 * time.Millisecond

// Filter narrows List results. Zero values mean no constraint. Tags
// filter by intersection: a problem must carry every listed tag.
type Filter struct {
	Tags  []string
	Grade int
	Year  int
}

// ProblemStore serves problems loaded from a JSON file. Reads are
// lock-cheap; reloads swap the whole snapshot under a write lock.
type ProblemStore struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	problems []datatypes.Problem
	byID     map[string]int
	loadedAt time.Time

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// Open loads the problem file into memory. A missing file is not an
// error: the store starts empty and fills on the first reload after
// the scraper writes it. A file that exists but will not parse is an
// error, since serving nothing in place of a known dataset is worse
// than failing loudly at startup.
func Open(path string) (*ProblemStore, error) {
	s := &ProblemStore{
		path:     path,
		debounce: defaultDebounce,
		byID:     make(map[string]int),
		done:     make(chan struct{}),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Problem file missing; starting with empty store", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	problems, err := parseProblems(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	s.swap(problems)
	slog.Info("Loaded problems", "path", path, "count", len(problems))
	return s, nil
}

func parseProblems(data []byte) ([]datatypes.Problem, error) {
	var problems []datatypes.Problem
	if err := json.Unmarshal(data, &problems); err != nil {
		return nil, err
	}
	for i := range problems {
		if problems[i].Tags == nil {
			problems[i].Tags = []string{}
		}
		if err := validation.ValidateProblemID(problems[i].ID); err != nil {
			slog.Warn("Problem record has malformed ID", "index", i, "error", err)
		}
	}
	return problems, nil
}

func (s *ProblemStore) swap(problems []datatypes.Problem) {
	byID := make(map[string]int, len(problems))
	for i, p := range problems {
		byID[p.ID] = i
	}
	s.mu.Lock()
	s.problems = problems
	s.byID = byID
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// Reload re-reads the problem file. A transiently missing or corrupt
// file keeps the current snapshot in place.
func (s *ProblemStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("Reload skipped; problem file unreadable", "path", s.path, "error", err)
		return err
	}
	problems, err := parseProblems(data)
	if err != nil {
		slog.Error("Reload skipped; problem file did not parse", "path", s.path, "error", err)
		return err
	}
	s.swap(problems)
	slog.Info("Reloaded problems", "path", s.path, "count", len(problems))
	return nil
}

// Watch starts hot reloading: changes to the problem file trigger a
// debounced Reload until the context is cancelled or Close is called.
// The parent directory is watched rather than the file itself so that
// atomic saves (write temp, rename over) keep working.
func (s *ProblemStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watcher = watcher
	go s.watchLoop(ctx)
	slog.Info("Watching problem file for changes", "path", s.path)
	return nil
}

func (s *ProblemStore) watchLoop(ctx context.Context) {
	target := filepath.Clean(s.path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				timerC = timer.C
			} else {
				timer.Reset(s.debounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			_ = s.Reload()
		}
	}
}

// Close stops the watcher, if one was started.
func (s *ProblemStore) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			s.watcher.Close()
		}
	})
}

// List returns the problems matching the filter, in file order.
func (s *ProblemStore) List(f Filter) []datatypes.Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]datatypes.Problem, 0, len(s.problems))
	for _, p := range s.problems {
		if f.Grade != 0 && p.Grade != f.Grade {
			continue
		}
		if f.Year != 0 && p.Year != f.Year {
			continue
		}
		if !hasAllTags(p.Tags, f.Tags) {
			continue
		}
		result = append(result, p)
	}
	return result
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Get returns one problem by ID.
func (s *ProblemStore) Get(id string) (datatypes.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return datatypes.Problem{}, ErrNotFound
	}
	return s.problems[i], nil
}

// Len reports how many problems are loaded.
func (s *ProblemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.problems)
}

// LoadedAt reports when the current snapshot was loaded.
func (s *ProblemStore) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
