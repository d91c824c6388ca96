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

import "time"

// AnalysisRecord is the cached result for one content fingerprint. It is
// immutable once written; a different fingerprint is the only cache-bust.
// The transformation attempt is filled in lazily: a record written after
// classification has Attempt == nil, and a second put after a successful
// validation carries the attempt. Cached attempts are still re-validated in
// the sandbox before they are trusted.
type AnalysisRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Language    string    `json:"language"`
	Patterns    []Pattern `json:"patterns"`
	Priority    float64   `json:"priority"`
	// ContextSummary is a short description of the retrieved context that
	// produced the transformation, kept for the report.
	ContextSummary string `json:"context_summary,omitempty"`
	// Attempt is the validated transformation, once one exists.
	Attempt   *Attempt  `json:"attempt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
