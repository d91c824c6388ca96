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
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/work"
)

type mockSubmitter struct {
	calls   int
	branch  string
	files   map[string]string
	summary string
	err     error
}

func (m *mockSubmitter) OpenChange(ctx context.Context, branch string, files map[string]string, summary string) (string, error) {
	m.calls++
	m.branch = branch
	m.files = files
	m.summary = summary
	if m.err != nil {
		return "", m.err
	}
	return "https://example.com/pr/1", nil
}

func TestSubmit_OpensExactlyOnce(t *testing.T) {
	run := finishedRun()
	sub := &mockSubmitter{}

	url, err := Submit(context.Background(), sub, run, "summary")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("OpenChange calls: got %d, want 1", sub.calls)
	}
	if url == "" {
		t.Error("url must be forwarded from the submitter")
	}
	if !strings.HasPrefix(sub.branch, "relift/") {
		t.Errorf("branch: %s", sub.branch)
	}
	if _, ok := sub.files["good.py"]; !ok {
		t.Errorf("succeeded file missing from payload: %v", sub.files)
	}
	if _, ok := sub.files["tests/test_good.py"]; !ok {
		t.Errorf("generated tests missing from payload: %v", sub.files)
	}
	if _, ok := sub.files["bad.py"]; ok {
		t.Error("failed file must not be submitted")
	}
}

func TestSubmit_CancelledRunSubmitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sub := &mockSubmitter{}

	url, err := Submit(ctx, sub, finishedRun(), "summary")
	if err != nil || url != "" {
		t.Fatalf("got (%q, %v), want no-op", url, err)
	}
	if sub.calls != 0 {
		t.Errorf("cancelled run must submit nothing, got %d calls", sub.calls)
	}
}

func TestSubmit_NoSuccessesSubmitsNothing(t *testing.T) {
	run := work.NewBatchRun("src", "python3.12")
	run.Items = []*work.Item{
		{Path: "a.py", State: work.Failed},
		{Path: "b.py", State: work.Skipped},
	}
	sub := &mockSubmitter{}

	if _, err := Submit(context.Background(), sub, run, "summary"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.calls != 0 {
		t.Errorf("run without successes must submit nothing, got %d calls", sub.calls)
	}
}

func TestSubmit_NilSubmitter(t *testing.T) {
	url, err := Submit(context.Background(), nil, finishedRun(), "summary")
	if url != "" || err != nil {
		t.Errorf("got (%q, %v), want no-op", url, err)
	}
}

func TestSubmit_ErrorPropagatesWithoutRetry(t *testing.T) {
	sub := &mockSubmitter{err: errors.New("server down")}

	if _, err := Submit(context.Background(), sub, finishedRun(), "summary"); err == nil {
		t.Fatal("expected submission error")
	}
	if sub.calls != 1 {
		t.Errorf("a failed submission must not be retried, got %d calls", sub.calls)
	}
}
