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

package work

import (
	"time"

	"github.com/google/uuid"
)

// BatchRun is the top-level unit of work: an ordered set of items plus the
// shared budgets. It is terminal when every item is terminal.
type BatchRun struct {
	ID string
	// Root is the directory (or single file) the batch was built from.
	Root string
	// Target is the modernization target, e.g. "python3.12" or "java21".
	Target string

	Items []*Item

	CreatedAt  time.Time
	FinishedAt time.Time
}

// NewBatchRun creates an empty run for root and target.
func NewBatchRun(root, target string) *BatchRun {
	return &BatchRun{
		ID:        uuid.NewString(),
		Root:      root,
		Target:    target,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether every item has reached a terminal state.
func (b *BatchRun) Terminal() bool {
	for _, it := range b.Items {
		if !it.State.Terminal() {
			return false
		}
	}
	return true
}

// CountByState tallies items per lifecycle state.
func (b *BatchRun) CountByState() map[State]int {
	counts := make(map[State]int)
	for _, it := range b.Items {
		counts[it.State]++
	}
	return counts
}
