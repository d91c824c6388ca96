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

// Package report aggregates terminal work items into a reviewable change
// summary, risk assessment and rollback plan, and submits the result as a
// single change request.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/work"
)

// DefaultRiskExpression combines failure rate, fix effort and pattern
// severity into a 0-100 risk score. Operators can override it in config.
const DefaultRiskExpression = "failure_rate * 60 + fix_attempts_avg * 10 + severity_score * 0.3"

// FileOutcome is one item's row in the report.
type FileOutcome struct {
	Path           string
	State          work.State
	Tags           []string
	AttemptsUsed   int
	Coverage       float64
	Diff           string
	Diagnostics    string
	Infrastructure bool
	// Rollback states how to undo this file's change.
	Rollback string
}

// Report is the aggregate outcome of one batch run.
type Report struct {
	RunID  string
	Target string

	Counts    map[work.State]int
	Files     []FileOutcome
	RiskScore float64
	// AvgCoverage averages coverage over files that measured any.
	AvgCoverage float64

	GeneratedAt time.Time
}

// Submitter is the change-request collaborator: called exactly once per
// batch run, after terminal aggregation.
type Submitter interface {
	// OpenChange opens one reviewable change request and returns its id.
	OpenChange(ctx context.Context, branch string, files map[string]string, summary string) (string, error)
}

// Assembler builds reports from finished batch runs.
type Assembler struct {
	// RiskExpression overrides DefaultRiskExpression when non-empty.
	// Available variables: failure_rate, fix_attempts_avg, severity_score.
	RiskExpression string
}

// Assemble aggregates every item of run into a Report. All items must be
// terminal.
func (a *Assembler) Assemble(run *work.BatchRun) (*Report, error) {
	if !run.Terminal() {
		return nil, errors.New("report: batch run has non-terminal items")
	}
	rep := &Report{
		RunID:       run.ID,
		Target:      run.Target,
		Counts:      run.CountByState(),
		GeneratedAt: time.Now(),
	}

	var failed, processed, covered int
	var attemptsTotal, severityTotal, coverageTotal float64
	for _, it := range run.Items {
		out := FileOutcome{
			Path:           it.Path,
			State:          it.State,
			Tags:           it.Tags(),
			AttemptsUsed:   len(it.Attempts),
			Diagnostics:    it.Err,
			Infrastructure: it.Infrastructure,
			Rollback:       fmt.Sprintf("discard the proposed change and keep the original %s", it.Path),
		}
		if it.LastResult != nil {
			out.Coverage = it.LastResult.Coverage
			if out.Diagnostics == "" && !it.LastResult.Pass {
				out.Diagnostics = it.LastResult.Diagnostics
			}
		}
		if att := it.LastAttempt(); att != nil && it.State == work.Succeeded {
			out.Diff = Unified(it.Path, it.Content, att.Code)
		}
		rep.Files = append(rep.Files, out)

		if it.State == work.Skipped {
			continue
		}
		processed++
		attemptsTotal += float64(len(it.Attempts))
		severityTotal += work.PriorityScore(it.Patterns)
		if it.State == work.Failed {
			failed++
		}
		if out.Coverage > 0 {
			covered++
			coverageTotal += out.Coverage
		}
	}
	sort.Slice(rep.Files, func(i, j int) bool { return rep.Files[i].Path < rep.Files[j].Path })

	if covered > 0 {
		rep.AvgCoverage = coverageTotal / float64(covered)
	}

	vars := map[string]interface{}{
		"failure_rate":     ratio(failed, processed),
		"fix_attempts_avg": ratio64(attemptsTotal, processed),
		"severity_score":   ratio64(severityTotal, processed),
	}
	score, err := a.evalRisk(vars)
	if err != nil {
		return nil, err
	}
	rep.RiskScore = clamp(score, 0, 100)
	return rep, nil
}

func (a *Assembler) evalRisk(vars map[string]interface{}) (float64, error) {
	exprText := a.RiskExpression
	if exprText == "" {
		exprText = DefaultRiskExpression
	}
	expr, err := govaluate.NewEvaluableExpression(exprText)
	if err != nil {
		return 0, errors.Wrapf(err, "risk expression %q", exprText)
	}
	v, err := expr.Evaluate(vars)
	if err != nil {
		return 0, errors.Wrap(err, "evaluate risk expression")
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("risk expression returned %T, want number", v)
	}
	return f, nil
}

// Summary renders the report as markdown, used for the change-request body
// and the local report file.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Modernization report\n\n")
	fmt.Fprintf(&b, "Run `%s`, target **%s**, generated %s.\n\n", r.RunID, r.Target, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| State | Files |\n|---|---|\n")
	for _, s := range []work.State{work.Succeeded, work.Failed, work.Skipped} {
		fmt.Fprintf(&b, "| %s | %d |\n", s, r.Counts[s])
	}
	fmt.Fprintf(&b, "\n**Risk score**: %.1f / 100\n", r.RiskScore)
	if r.AvgCoverage > 0 {
		fmt.Fprintf(&b, "**Average coverage**: %.1f%%\n", r.AvgCoverage)
	}
	b.WriteString("\n## Files\n\n")
	for _, f := range r.Files {
		fmt.Fprintf(&b, "### %s - %s\n\n", f.Path, f.State)
		if len(f.Tags) > 0 {
			fmt.Fprintf(&b, "Patterns: %s\n\n", strings.Join(f.Tags, ", "))
		}
		if f.AttemptsUsed > 0 {
			fmt.Fprintf(&b, "Attempts used: %d\n\n", f.AttemptsUsed)
		}
		if f.Infrastructure {
			b.WriteString("Failure was caused by infrastructure, not by the code.\n\n")
		}
		if f.State == work.Failed && f.Diagnostics != "" {
			fmt.Fprintf(&b, "Last diagnostics:\n```\n%s\n```\n\n", truncate(f.Diagnostics, 2000))
		}
		fmt.Fprintf(&b, "Rollback: %s\n\n", f.Rollback)
	}
	b.WriteString("## Rollback plan\n\nDiscard the proposed change set and revert every file to its original content, as stated per file above.\n")
	return b.String()
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func ratio64(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
