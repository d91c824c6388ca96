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

// Package classify assigns modernization priority and legacy-pattern tags to
// input files. Classification is fail-soft: an error degrades to an empty
// result instead of failing the work item.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/log"
	"github.com/relift-dev/relift/internal/work"
	"github.com/relift-dev/relift/llm"
)

// Result is the classifier collaborator's output for one file.
type Result struct {
	// Category is one of modernize_high, modernize_low, skip.
	Category string `json:"category" jsonschema:"enum=modernize_high,enum=modernize_low,enum=skip"`
	// Patterns are the detected legacy patterns.
	Patterns []work.Pattern `json:"patterns"`
}

// Priority derives the scheduling score from the category and patterns.
func (r *Result) Priority() float64 {
	base := map[string]float64{
		"modernize_high": 75,
		"modernize_low":  25,
		"skip":           0,
	}[r.Category]
	return base + work.PriorityScore(r.Patterns)
}

// Classifier is the classification collaborator.
type Classifier interface {
	// Classify analyzes one file. Implementations may fail; callers degrade
	// a failure to empty tags rather than aborting.
	Classify(ctx context.Context, path, content, language string) (*Result, error)
}

// resultSchema is the JSON schema embedded in the classification prompt so
// the model returns the exact structure we parse.
var resultSchema = func() string {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Result{})
	raw, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(raw)
}()

// LLMClassifier classifies files with a chat model and a few-shot prompt.
type LLMClassifier struct {
	gen llm.Generator
}

// NewLLMClassifier creates a classifier over gen.
func NewLLMClassifier(gen llm.Generator) *LLMClassifier {
	return &LLMClassifier{gen: gen}
}

const classifyPromptHeader = `You are a code modernization expert. Analyze the file below and detect legacy patterns.

CATEGORIES:
- modernize_high: legacy patterns that need immediate update (deprecated libraries, security issues, obsolete language versions)
- modernize_low: minor improvements needed (missing type annotations, import cleanup)
- skip: already modern

EXAMPLES:
1. utils/db.py (uses MySQLdb, string-interpolated SQL) -> modernize_high, patterns: deprecated-library (high), sql-injection (critical)
2. config.py (hardcoded credentials) -> modernize_high, patterns: hardcoded-credentials (critical)
3. models/user.py (missing type hints) -> modernize_low, patterns: missing-type-hints (low)
4. api/UserController.java (uses Vector, no generics) -> modernize_high, patterns: deprecated-api (high), raw-types (medium)
5. tests/test_api.py (modern pytest suite) -> skip, patterns: none
`

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, path, content, language string) (*Result, error) {
	var b strings.Builder
	b.WriteString(classifyPromptHeader)
	fmt.Fprintf(&b, "\nFILE: %s\nLANGUAGE: %s\n\nCODE:\n```\n%s\n```\n", path, language, truncate(content, 12000))
	fmt.Fprintf(&b, "\nReturn ONLY a JSON object matching this schema:\n%s\n", resultSchema)
	b.WriteString(`Pattern severity must be one of: critical, high, medium, low, info. Confidence is in (0,1].`)

	reply, err := c.gen.Call(ctx, b.String())
	if err != nil {
		return nil, errors.Wrap(err, "classification call")
	}
	res, err := parseResult(reply)
	if err != nil {
		return nil, errors.Wrapf(err, "classification reply for %s", path)
	}
	return res, nil
}

func parseResult(reply string) (*Result, error) {
	raw := ExtractJSON(reply)
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, err
	}
	switch res.Category {
	case "modernize_high", "modernize_low", "skip":
	default:
		// Unknown categories are treated conservatively.
		res.Category = "skip"
	}
	for i, p := range res.Patterns {
		switch p.Severity {
		case work.SeverityCritical, work.SeverityHigh, work.SeverityMedium, work.SeverityLow, work.SeverityInfo:
		default:
			res.Patterns[i].Severity = work.SeverityLow
		}
	}
	return &res, nil
}

// Soft wraps a Classifier so errors degrade to an empty result. The pipeline
// never fails an item on classification (spec of the classify collaborator).
type Soft struct {
	Inner Classifier
}

// Classify implements Classifier and never returns an error.
func (s Soft) Classify(ctx context.Context, path, content, language string) (*Result, error) {
	res, err := s.Inner.Classify(ctx, path, content, language)
	if err != nil {
		log.Warn("classification degraded for %s: %v", path, err)
		return &Result{Category: "modernize_low"}, nil
	}
	return res, nil
}

// ExtractJSON strips markdown fences and surrounding prose from a model
// reply, returning the outermost JSON object or array.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			text = rest[:j]
		} else {
			text = rest
		}
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "json"))
	}
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	open := text[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	if end := strings.LastIndexByte(text, close); end > start {
		return text[start : end+1]
	}
	return text[start:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
