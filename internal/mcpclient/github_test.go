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

package mcpclient

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

type recordedCall struct {
	name string
	args map[string]any
}

type mockCaller struct {
	calls   []recordedCall
	replies map[string]string
	failOn  string
}

func (m *mockCaller) CallText(ctx context.Context, name string, args map[string]any) (string, error) {
	m.calls = append(m.calls, recordedCall{name: name, args: args})
	if name == m.failOn {
		return "", errors.New("tool unavailable")
	}
	return m.replies[name], nil
}

func TestGitHubSubmitter_Sequence(t *testing.T) {
	caller := &mockCaller{replies: map[string]string{
		"create_pull_request": `{"url": "https://github.com/acme/app/pull/7", "number": 7}`,
	}}
	sub := &GitHubSubmitter{client: caller, Repo: "acme/app", BaseBranch: "develop"}

	url, err := sub.OpenChange(context.Background(), "relift/abc12345",
		map[string]string{"a.py": "x", "b.py": "y"}, "summary body")
	if err != nil {
		t.Fatalf("OpenChange: %v", err)
	}
	if url != "https://github.com/acme/app/pull/7" {
		t.Errorf("url: %s", url)
	}

	want := []string{"create_branch", "push_files", "create_pull_request"}
	if len(caller.calls) != len(want) {
		t.Fatalf("calls: %v", caller.calls)
	}
	for i, name := range want {
		if caller.calls[i].name != name {
			t.Errorf("call %d: got %s, want %s", i, caller.calls[i].name, name)
		}
	}
	branchArgs := caller.calls[0].args
	if branchArgs["branch"] != "relift/abc12345" || branchArgs["from_branch"] != "develop" {
		t.Errorf("create_branch args: %v", branchArgs)
	}
	prArgs := caller.calls[2].args
	if prArgs["head"] != "relift/abc12345" || prArgs["base"] != "develop" || prArgs["body"] != "summary body" {
		t.Errorf("create_pull_request args: %v", prArgs)
	}
}

func TestGitHubSubmitter_PushBatches(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 25; i++ {
		files[fmt.Sprintf("f%02d.py", i)] = "x"
	}
	caller := &mockCaller{}
	sub := &GitHubSubmitter{client: caller, Repo: "acme/app"}

	if _, err := sub.OpenChange(context.Background(), "relift/abc12345", files, "s"); err != nil {
		t.Fatalf("OpenChange: %v", err)
	}
	var pushes int
	for _, c := range caller.calls {
		if c.name == "push_files" {
			pushes++
		}
	}
	if pushes != 3 {
		t.Errorf("25 files must push in 3 batches, got %d", pushes)
	}
}

func TestGitHubSubmitter_BranchFailureStopsEarly(t *testing.T) {
	caller := &mockCaller{failOn: "create_branch"}
	sub := &GitHubSubmitter{client: caller, Repo: "acme/app"}

	if _, err := sub.OpenChange(context.Background(), "relift/abc12345",
		map[string]string{"a.py": "x"}, "s"); err == nil {
		t.Fatal("expected branch creation error")
	}
	if len(caller.calls) != 1 {
		t.Errorf("nothing may be pushed after a failed branch, got %v", caller.calls)
	}
}

func TestGitHubSubmitter_MissingRepo(t *testing.T) {
	sub := &GitHubSubmitter{client: &mockCaller{}}
	if _, err := sub.OpenChange(context.Background(), "b", nil, "s"); err == nil {
		t.Fatal("expected configuration error")
	}
}
