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

package pipeline

import (
	"time"

	"github.com/relift-dev/relift/internal/work"
)

// Event is emitted on every work-item state transition.
type Event struct {
	RunID string
	Path  string
	From  work.State
	To    work.State
	// Note carries transition context, e.g. "cache-hit" or "attempt 2/3".
	Note string
	Time time.Time
}

// Listener receives progress events. It must be safe for concurrent calls;
// the orchestrator invokes it from every worker goroutine.
type Listener func(Event)
