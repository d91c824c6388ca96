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

package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/relift-dev/relift/internal/work"
)

// scriptedGenerator replays canned replies in order.
type scriptedGenerator struct {
	replies []string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Call(ctx context.Context, input string) (string, error) {
	g.prompts = append(g.prompts, input)
	if g.err != nil {
		return "", g.err
	}
	i := len(g.prompts) - 1
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	return g.replies[i], nil
}

func baseRequest() *Request {
	return &Request{
		Path:     "app.py",
		Language: "python",
		Target:   "python3.12",
		Content:  "print 'hello'",
		Tags:     []string{"py2-print"},
		Attempt:  1,
	}
}

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"fenced with ident", "```python\nx = 1\n```", "x = 1"},
		{"fenced no ident", "```\nx = 1\n```", "x = 1"},
		{"prose around fence", "Here you go:\n```py\nx = 1\n```\nEnjoy!", "x = 1"},
		{"bare code", "x = 1", "x = 1"},
		{"single fence", "x = 1\n```", "x = 1"},
		{"unclosed fence after prose", "Here is the code:\n```python\nx = 1\nprint(x)", "x = 1\nprint(x)"},
		{"unclosed fence no ident", "Sure:\n```\nx = 1", "x = 1"},
		{"empty", "", ""},
		{"ident-looking first line kept", "```\nimport os\nx = 1\n```", "import os\nx = 1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExtractCode(c.in); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestTransform_ProducesAttempt(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"```python\nprint('hello')\n```",
		"```python\ndef test_hello():\n    assert True\n```",
	}}
	tr := NewLLMTransformer(gen)

	att, err := tr.Transform(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if att.Code != "print('hello')" {
		t.Errorf("code: %q", att.Code)
	}
	if !strings.Contains(att.Tests, "def test_hello") {
		t.Errorf("tests: %q", att.Tests)
	}
	if att.Producer != "transformer" || att.Number != 1 {
		t.Errorf("attempt meta: %+v", att)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("got %d calls, want code + tests", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "py2-print") {
		t.Error("transform prompt must carry the detected patterns")
	}
}

func TestTransform_FallbackTestsWhenUnrecognizable(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"```python\nprint('ok')\n```",
		"I am unable to write tests for this file.",
	}}
	tr := NewLLMTransformer(gen)

	att, err := tr.Transform(context.Background(), baseRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(att.Tests, "def test_smoke") {
		t.Errorf("expected fallback smoke tests, got %q", att.Tests)
	}
}

func TestTransform_EmptyCodeIsTransformationError(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"Sorry, I cannot help with that."}}
	tr := NewLLMTransformer(gen)

	_, err := tr.Transform(context.Background(), baseRequest())
	var terr *work.TransformationError
	if !errors.As(err, &terr) {
		t.Fatalf("got %T (%v), want TransformationError", err, err)
	}
	if terr.Path != "app.py" {
		t.Errorf("path: %s", terr.Path)
	}
}

func TestTransform_TransportFailureIsInfrastructure(t *testing.T) {
	tr := NewLLMTransformer(&scriptedGenerator{err: fmt.Errorf("connection refused")})

	_, err := tr.Transform(context.Background(), baseRequest())
	var ierr *work.InfrastructureError
	if !errors.As(err, &ierr) {
		t.Fatalf("got %T (%v), want InfrastructureError", err, err)
	}
	if ierr.Component != "transformer" {
		t.Errorf("component: %s", ierr.Component)
	}
}

func TestBuildFixRequest(t *testing.T) {
	base := baseRequest()
	prev := &work.Attempt{Number: 1, Code: "print('helo')"}
	res := &work.SandboxResult{Pass: false, TestsRun: 2, TestsFailed: 1, Diagnostics: "NameError: helo"}

	fix := BuildFixRequest(base, prev, res)
	if fix.Attempt != 2 {
		t.Errorf("attempt: %d", fix.Attempt)
	}
	if fix.PrevCode != prev.Code || fix.Diagnostics != "NameError: helo" {
		t.Errorf("fix: %+v", fix)
	}
	if base.Attempt != 1 || base.PrevCode != "" {
		t.Error("base request must not be mutated")
	}
}

func TestBuildFixRequest_EmptyDiagnostics(t *testing.T) {
	fix := BuildFixRequest(baseRequest(), &work.Attempt{Number: 1}, &work.SandboxResult{TestsRun: 3, TestsFailed: 3})
	if fix.Diagnostics == "" {
		t.Fatal("a fix request must always carry diagnostics")
	}
}

func TestTransform_FixRequestUsesAutofixProducer(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{
		"```python\nprint('hello')\n```",
		"```python\ndef test_hello():\n    assert True\n```",
	}}
	tr := NewLLMTransformer(gen)

	req := BuildFixRequest(baseRequest(), &work.Attempt{Number: 1, Code: "old"}, &work.SandboxResult{Diagnostics: "boom"})
	att, err := tr.Transform(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if att.Producer != "autofix" || att.Number != 2 {
		t.Errorf("attempt meta: %+v", att)
	}
	if !strings.Contains(gen.prompts[0], "PREVIOUS ATTEMPT") || !strings.Contains(gen.prompts[0], "boom") {
		t.Error("fix prompt must replay the previous attempt and diagnostics")
	}
}

func TestFallbackTests(t *testing.T) {
	py := FallbackTests("src/my-app.py", "python")
	if !strings.Contains(py, "import my_app") {
		t.Errorf("python fallback must sanitize the module name: %q", py)
	}
	java := FallbackTests("src/UserDao.java", "java")
	if !strings.Contains(java, "@Test") {
		t.Errorf("java fallback: %q", java)
	}
	if FallbackTests("x.zig", "zig") != "" {
		t.Error("unknown languages have no fallback")
	}
}
