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

import "sort"

// Severity grades how urgently a detected pattern needs modernization.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityWeights feed the scheduling priority and the report risk score.
var severityWeights = map[Severity]float64{
	SeverityCritical: 100,
	SeverityHigh:     75,
	SeverityMedium:   50,
	SeverityLow:      25,
	SeverityInfo:     10,
}

// Weight returns the numeric weight of s; unknown severities count as low.
func (s Severity) Weight() float64 {
	if w, ok := severityWeights[s]; ok {
		return w
	}
	return severityWeights[SeverityLow]
}

// Pattern is one legacy pattern detected in a file.
type Pattern struct {
	// Tag names the pattern, e.g. "deprecated-library" or "sql-injection".
	Tag        string   `json:"tag"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
}

// TagsOf returns the sorted, deduplicated tags of a pattern set.
func TagsOf(patterns []Pattern) []string {
	seen := make(map[string]struct{}, len(patterns))
	tags := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p.Tag == "" {
			continue
		}
		if _, ok := seen[p.Tag]; ok {
			continue
		}
		seen[p.Tag] = struct{}{}
		tags = append(tags, p.Tag)
	}
	sort.Strings(tags)
	return tags
}

// PriorityScore computes the scheduling score of a pattern set: the weighted
// sum of severities scaled by confidence. It is pure and affects ordering
// only, never correctness.
func PriorityScore(patterns []Pattern) float64 {
	var score float64
	for _, p := range patterns {
		c := p.Confidence
		if c <= 0 || c > 1 {
			c = 0.5
		}
		score += p.Severity.Weight() * c
	}
	return score
}
