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
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/log"
)

// pushBatchSize bounds how many files go into one push_files call.
const pushBatchSize = 10

// toolCaller is the slice of Client the submitters need.
type toolCaller interface {
	CallText(ctx context.Context, name string, args map[string]any) (string, error)
}

// GitHubSubmitter implements report.Submitter over a GitHub MCP server:
// create a branch, push the changed files, open one pull request.
type GitHubSubmitter struct {
	client toolCaller
	// Repo is "owner/name".
	Repo string
	// BaseBranch defaults to "main".
	BaseBranch string
}

// NewGitHubSubmitter wraps an already-started GitHub server client.
func NewGitHubSubmitter(client *Client, repo string) *GitHubSubmitter {
	return &GitHubSubmitter{client: client, Repo: repo, BaseBranch: "main"}
}

// OpenChange implements report.Submitter. It is invoked exactly once per
// batch run; on failure nothing is retried automatically, the operator
// reruns submission explicitly.
func (g *GitHubSubmitter) OpenChange(ctx context.Context, branch string, files map[string]string, summary string) (string, error) {
	if g.Repo == "" {
		return "", errors.New("github repo not configured")
	}
	base := g.BaseBranch
	if base == "" {
		base = "main"
	}

	if _, err := g.client.CallText(ctx, "create_branch", map[string]any{
		"repo":        g.Repo,
		"branch":      branch,
		"from_branch": base,
	}); err != nil {
		return "", errors.Wrap(err, "create branch")
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for i := 0; i < len(paths); i += pushBatchSize {
		end := i + pushBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		payload := make([]map[string]string, 0, end-i)
		for _, p := range paths[i:end] {
			payload = append(payload, map[string]string{"path": p, "content": files[p]})
		}
		if _, err := g.client.CallText(ctx, "push_files", map[string]any{
			"repo":    g.Repo,
			"branch":  branch,
			"files":   payload,
			"message": "Modernize batch " + branch,
		}); err != nil {
			return "", errors.Wrapf(err, "push files %d-%d", i, end)
		}
	}

	text, err := g.client.CallText(ctx, "create_pull_request", map[string]any{
		"repo":  g.Repo,
		"title": "[Automated] Modernize codebase",
		"body":  summary,
		"head":  branch,
		"base":  base,
		"draft": false,
	})
	if err != nil {
		return "", errors.Wrap(err, "create pull request")
	}

	var pr struct {
		URL    string `json:"url"`
		Number int    `json:"number"`
	}
	if err := json.Unmarshal([]byte(text), &pr); err == nil && pr.URL != "" {
		log.Info("opened change request %s", pr.URL)
		return pr.URL, nil
	}
	return text, nil
}
