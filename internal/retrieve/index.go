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

package retrieve

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Similar is one nearest-neighbor hit restricted to the current batch.
type Similar struct {
	Path  string
	Score float64
}

// Index is an in-memory vector index over the files of one batch. It is
// safe for concurrent Nearest calls once built.
type Index struct {
	emb Embedder

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewIndex creates an empty index using emb.
func NewIndex(emb Embedder) *Index {
	return &Index{emb: emb, vectors: make(map[string][]float32)}
}

// Add embeds content and stores it under path.
func (ix *Index) Add(ctx context.Context, path, content string) error {
	vec, err := ix.emb.Embed(ctx, content)
	if err != nil {
		return errors.Wrapf(err, "embed %s", path)
	}
	ix.mu.Lock()
	ix.vectors[path] = vec
	ix.mu.Unlock()
	return nil
}

// Len returns the number of indexed files.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Nearest returns up to k files most similar to path, excluding path
// itself, ranked by cosine similarity. Ties break by lexical path order so
// the ranking is deterministic.
func (ix *Index) Nearest(path string, k int) []Similar {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	query, ok := ix.vectors[path]
	if !ok || k <= 0 {
		return nil
	}
	hits := make([]Similar, 0, len(ix.vectors)-1)
	for p, vec := range ix.vectors {
		if p == path {
			continue
		}
		hits = append(hits, Similar{Path: p, Score: cosine(query, vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
