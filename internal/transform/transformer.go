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

// Package transform produces candidate modernized code plus a generated
// test suite for one work item.
package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relift-dev/relift/internal/retrieve"
	"github.com/relift-dev/relift/internal/work"
	"github.com/relift-dev/relift/llm"
)

// Request carries everything a transformation needs. The same structure
// serves first attempts and auto-fix retries; a retry carries the previous
// code and the sandbox diagnostics.
type Request struct {
	Path     string
	Language string
	Target   string
	Content  string
	Tags     []string
	Context  *retrieve.Context

	// Attempt is the number to assign to the produced attempt, starting at 1.
	Attempt int
	// PrevCode and Diagnostics are set on auto-fix retries only.
	PrevCode    string
	Diagnostics string
}

// Transformer turns a Request into a transformation attempt. The interface
// is deterministic (same inputs produce a valid attempt object) even though
// generation is not reproducible bit-for-bit.
type Transformer interface {
	Transform(ctx context.Context, req *Request) (*work.Attempt, error)
}

// LLMTransformer implements Transformer over a chat model. It makes two
// calls per request: one for the modernized code, one for the test suite.
type LLMTransformer struct {
	gen llm.Generator
}

// NewLLMTransformer creates a transformer over gen.
func NewLLMTransformer(gen llm.Generator) *LLMTransformer {
	return &LLMTransformer{gen: gen}
}

// Transform implements Transformer. A transport failure surfaces as an
// InfrastructureError; an unusable completion surfaces as a
// TransformationError. Both are typed so the orchestrator can route them.
func (t *LLMTransformer) Transform(ctx context.Context, req *Request) (*work.Attempt, error) {
	producer := "transformer"
	var prompt string
	if req.Diagnostics != "" {
		producer = "autofix"
		prompt = buildFixPrompt(req)
	} else {
		prompt = buildTransformPrompt(req)
	}

	reply, err := t.gen.Call(ctx, prompt)
	if err != nil {
		return nil, &work.InfrastructureError{Component: "transformer", Err: err}
	}
	code := ExtractCode(reply)
	if strings.TrimSpace(code) == "" {
		return nil, &work.TransformationError{Path: req.Path, Reason: "model produced no code"}
	}

	testReply, err := t.gen.Call(ctx, buildTestPrompt(req, code))
	if err != nil {
		return nil, &work.InfrastructureError{Component: "transformer", Err: err}
	}
	tests := ExtractCode(testReply)
	if !hasTestFunction(tests, req.Language) {
		tests = FallbackTests(req.Path, req.Language)
	}

	return &work.Attempt{
		Number:    req.Attempt,
		Code:      code,
		Tests:     tests,
		Producer:  producer,
		CreatedAt: time.Now(),
	}, nil
}

func buildTransformPrompt(req *Request) string {
	var b strings.Builder
	b.WriteString("You are an expert code modernization assistant. Transform this legacy code to modern best practices.\n\n")
	fmt.Fprintf(&b, "FILE: %s\nLANGUAGE: %s\nTARGET: %s\n", req.Path, req.Language, req.Target)
	if len(req.Tags) > 0 {
		fmt.Fprintf(&b, "DETECTED LEGACY PATTERNS: %s\n", strings.Join(req.Tags, ", "))
	}
	writeContext(&b, req.Context)
	fmt.Fprintf(&b, "\nORIGINAL CODE:\n```\n%s\n```\n", req.Content)
	b.WriteString(`
RULES:
- Preserve the public interface and behavior of the original code.
- Replace deprecated libraries and unsafe constructs with modern equivalents.
- Do not introduce new external dependencies unless unavoidable.
- Return ONLY the complete modernized file in a single fenced code block.
`)
	return b.String()
}

func buildTestPrompt(req *Request, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s test suite for the modernized file below.\n", testFramework(req.Language))
	fmt.Fprintf(&b, "\nFILE: %s\nLANGUAGE: %s\n", req.Path, req.Language)
	fmt.Fprintf(&b, "\nMODERNIZED CODE:\n```\n%s\n```\n", code)
	b.WriteString(`
RULES:
- Tests run in an isolated sandbox with source and tests in the same directory; use relative imports.
- Cover normal operation, edge cases and error handling.
- The suite must be self-contained and runnable without network access.
- Return ONLY the test file in a single fenced code block.
`)
	return b.String()
}

func writeContext(b *strings.Builder, rc *retrieve.Context) {
	if rc == nil {
		return
	}
	if len(rc.Similar) > 0 {
		b.WriteString("\nSIMILAR FILES IN THIS BATCH (modernize consistently with them):\n")
		for _, s := range rc.Similar {
			fmt.Fprintf(b, "- %s (similarity %.2f)\n", s.Path, s.Score)
		}
	}
	if len(rc.Guidance) > 0 {
		b.WriteString("\nMIGRATION GUIDANCE:\n")
		for _, g := range rc.Guidance {
			fmt.Fprintf(b, "- %s: %s\n", g.Title, truncate(g.Text, 300))
		}
	}
}

func testFramework(language string) string {
	switch language {
	case "python":
		return "pytest"
	case "java":
		return "JUnit 5"
	case "javascript", "typescript":
		return "Jest"
	case "go":
		return "Go testing"
	default:
		return "unit"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
