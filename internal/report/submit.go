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

package report

import (
	"context"

	"github.com/relift-dev/relift/internal/work"
)

// BranchName returns the change-request branch for a run.
func BranchName(run *work.BatchRun) string {
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "relift/" + id
}

// Submit opens the change request for a finished run, at most once. It is a
// no-op returning ("", nil) when s is nil, when the run was cancelled, or
// when no item succeeded. A submission error is returned to the caller and
// never retried here; the operator reruns submission explicitly.
func Submit(ctx context.Context, s Submitter, run *work.BatchRun, summary string) (string, error) {
	if s == nil || ctx.Err() != nil {
		return "", nil
	}
	if run.CountByState()[work.Succeeded] == 0 {
		return "", nil
	}
	return s.OpenChange(ctx, BranchName(run), ChangedFiles(run), summary)
}
