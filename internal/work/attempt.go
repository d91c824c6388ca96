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

// Attempt is one candidate transformation output for an Item. Numbers are
// monotonic per item, starting at 1; each auto-fix iteration produces a new
// Attempt.
type Attempt struct {
	Number    int
	Code      string
	Tests     string
	Producer  string // component that produced it, e.g. "transformer" or "autofix"
	CreatedAt time.Time
}

// SandboxResult is the outcome of executing one Attempt in the sandbox.
// It is associated 1:1 with its attempt and never mutated after creation.
type SandboxResult struct {
	Pass        bool
	TestsRun    int
	TestsPassed int
	TestsFailed int
	// Coverage is a percentage in [0,100]; 0 means not measured.
	Coverage    float64
	Diagnostics string
	Duration    time.Duration
	// Infrastructure marks results caused by the sandbox itself being
	// unavailable (spawn failure, environment missing) rather than the code.
	Infrastructure bool
}
