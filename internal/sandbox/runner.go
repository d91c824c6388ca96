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

// Package sandbox executes transformation attempts in isolation and reports
// pass/fail with diagnostics. Sandbox instability is reported as a failing
// result, never as an error that could abort the batch.
package sandbox

import (
	"context"

	"github.com/relift-dev/relift/internal/work"
)

// Runner is the sandbox collaborator. Each Run is independent: no state
// leaks between invocations.
type Runner interface {
	// Run executes attempt's code and tests for the given language. The
	// returned error is reserved for misuse (nil attempt); execution
	// problems of any kind are encoded in the result.
	Run(ctx context.Context, language string, attempt *work.Attempt) (*work.SandboxResult, error)
}
