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

package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relift-dev/relift/internal/work"
)

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Call(ctx context.Context, input string) (string, error) {
	return f.reply, f.err
}

func TestLLMClassifier_ParsesReply(t *testing.T) {
	gen := &fakeGenerator{reply: `Here is the analysis:
` + "```json" + `
{"category": "modernize_high", "patterns": [
  {"tag": "deprecated-api", "severity": "high", "confidence": 0.9},
  {"tag": "raw-types", "severity": "weird", "confidence": 0.7}
]}
` + "```"}
	c := NewLLMClassifier(gen)

	res, err := c.Classify(context.Background(), "a.java", "import java.util.Vector;", "java")
	require.NoError(t, err)
	assert.Equal(t, "modernize_high", res.Category)
	require.Len(t, res.Patterns, 2)
	assert.Equal(t, work.SeverityHigh, res.Patterns[0].Severity)
	// Unknown severities degrade to low instead of failing the item.
	assert.Equal(t, work.SeverityLow, res.Patterns[1].Severity)
}

func TestLLMClassifier_UnknownCategory(t *testing.T) {
	gen := &fakeGenerator{reply: `{"category": "rewrite_everything", "patterns": []}`}
	c := NewLLMClassifier(gen)

	res, err := c.Classify(context.Background(), "a.py", "x=1", "python")
	require.NoError(t, err)
	assert.Equal(t, "skip", res.Category)
}

func TestLLMClassifier_GarbageReply(t *testing.T) {
	c := NewLLMClassifier(&fakeGenerator{reply: "I cannot analyze this file."})
	_, err := c.Classify(context.Background(), "a.py", "x=1", "python")
	assert.Error(t, err)
}

func TestSoft_DegradesErrors(t *testing.T) {
	s := Soft{Inner: NewLLMClassifier(&fakeGenerator{err: fmt.Errorf("model down")})}
	res, err := s.Classify(context.Background(), "a.py", "x=1", "python")
	require.NoError(t, err)
	assert.Equal(t, "modernize_low", res.Category)
	assert.Empty(t, res.Patterns)
}

func TestResult_Priority(t *testing.T) {
	res := &Result{
		Category: "modernize_high",
		Patterns: []work.Pattern{{Tag: "t", Severity: work.SeverityMedium, Confidence: 1}},
	}
	assert.Equal(t, 75.0+50.0, res.Priority())
	assert.Equal(t, 0.0, (&Result{Category: "skip"}).Priority())
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"array", `result: [1,2,3] done`, `[1,2,3]`},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ExtractJSON(c.in))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("a.py", ""))
	assert.Equal(t, "javascript", DetectLanguage("a.MJS", ""))
	assert.Equal(t, "java", DetectLanguage("noext", "import java.util.List;\npublic class A {}"))
	assert.Equal(t, "", DetectLanguage("notes.txt", "plain text"))
}
