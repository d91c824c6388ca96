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

// Package work defines the data model shared by every pipeline stage:
// work items, transformation attempts, sandbox results and cached
// analysis records.
package work

import (
	"fmt"
	"time"
)

// State is the lifecycle state of an Item. States advance monotonically;
// the only re-entry is the bounded Fixing -> Validating sub-loop.
type State string

const (
	Queued       State = "queued"
	Classifying  State = "classifying"
	Retrieving   State = "retrieving"
	Transforming State = "transforming"
	Validating   State = "validating"
	Fixing       State = "fixing"
	Succeeded    State = "succeeded"
	Failed       State = "failed"
	Skipped      State = "skipped"
)

// rank orders states for the monotonicity check. Fixing and Validating share
// a rank because the fix loop bounces between them.
var rank = map[State]int{
	Queued:       0,
	Classifying:  1,
	Retrieving:   2,
	Transforming: 3,
	Validating:   4,
	Fixing:       4,
	Succeeded:    5,
	Failed:       5,
	Skipped:      5,
}

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Skipped
}

// CanAdvance reports whether moving from s to next is a legal transition.
// Skipped is reachable from any non-terminal state (cancellation or fatal
// precondition); everything else must move forward.
func (s State) CanAdvance(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == Skipped {
		return true
	}
	if s == Validating && next == Fixing {
		return true
	}
	if s == Fixing && next == Validating {
		return true
	}
	return rank[next] > rank[s]
}

// Item is one file under modernization and its lifecycle state. An Item is
// owned exclusively by the orchestrator for the duration of a run.
type Item struct {
	// ID is path + short content hash, stable for the run.
	ID       string
	Path     string
	Language string
	Content  string

	// Fingerprint is the cache key: normalized content + target parameters.
	Fingerprint string

	// Patterns are the legacy patterns detected by the classifier.
	Patterns []Pattern
	// Priority orders scheduling only; it never affects correctness.
	Priority float64

	State State

	// Attempts holds every transformation attempt, in order. After the item
	// terminates only the last one matters for output.
	Attempts []*Attempt
	// LastResult is the sandbox result of the most recent attempt.
	LastResult *SandboxResult

	// Retrieved is a short description of the context used for transformation.
	Retrieved string

	// Err records why the item ended Failed or Skipped.
	Err string
	// Infrastructure marks failures caused by unreachable collaborators
	// rather than the code itself; the report flags these distinctly.
	Infrastructure bool

	StartedAt  time.Time
	FinishedAt time.Time
}

// Advance moves the item to next, enforcing monotonicity.
func (it *Item) Advance(next State) error {
	if !it.State.CanAdvance(next) {
		return fmt.Errorf("illegal transition %s -> %s for %s", it.State, next, it.Path)
	}
	it.State = next
	return nil
}

// Tags returns the pattern tags as a sorted, deduplicated slice.
func (it *Item) Tags() []string {
	return TagsOf(it.Patterns)
}

// LastAttempt returns the most recent attempt, or nil.
func (it *Item) LastAttempt() *Attempt {
	if len(it.Attempts) == 0 {
		return nil
	}
	return it.Attempts[len(it.Attempts)-1]
}
