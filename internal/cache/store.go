// Copyright 2025 The relift Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"sync"

	"github.com/relift-dev/relift/internal/work"
)

// Store is the cache collaborator: get and put analysis records by
// fingerprint. Implementations must make Put idempotent so concurrent
// writers need no exclusive coordination.
type Store interface {
	// Get returns the record for fp, or ok=false when absent.
	Get(ctx context.Context, fp string) (rec *work.AnalysisRecord, ok bool, err error)
	// Put stores rec under its fingerprint. First writer wins: once a record
	// with a transformation attempt exists it is never replaced, and a
	// record without one is only upgraded, never degraded.
	Put(ctx context.Context, rec *work.AnalysisRecord) error
}

// MemoryStore is the in-process Store. Reads share an RLock; writes append
// under the write lock with first-writer-wins semantics.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*work.AnalysisRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*work.AnalysisRecord)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, fp string) (*work.AnalysisRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[fp]
	return rec, ok, nil
}

// Put implements Store. A later write for the same fingerprint is a no-op
// unless it upgrades a classification-only record with a transformation
// attempt.
func (s *MemoryStore) Put(ctx context.Context, rec *work.AnalysisRecord) error {
	if rec == nil || rec.Fingerprint == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.recs[rec.Fingerprint]
	if !ok {
		s.recs[rec.Fingerprint] = rec
		return nil
	}
	if existing.Attempt == nil && rec.Attempt != nil {
		s.recs[rec.Fingerprint] = rec
	}
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}
