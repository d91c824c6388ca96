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
	"strings"

	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/retrieve"
)

// SearchClient implements retrieve.GuidanceClient over a search MCP server
// (e.g. a web-search provider). Callers treat failures as soft: the
// retriever degrades to similarity-only context.
type SearchClient struct {
	client *Client
}

// NewSearchClient wraps an already-started search server client.
func NewSearchClient(client *Client) *SearchClient {
	return &SearchClient{client: client}
}

// Search implements retrieve.GuidanceClient.
func (s *SearchClient) Search(ctx context.Context, query string, maxResults int) ([]retrieve.Snippet, error) {
	text, err := s.client.CallText(ctx, "search", map[string]any{
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, errors.Wrap(err, "guidance search")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	// Structured servers return a JSON array of results; plain-text servers
	// return prose, which still makes a usable single snippet.
	var snippets []retrieve.Snippet
	if err := json.Unmarshal([]byte(text), &snippets); err == nil {
		if len(snippets) > maxResults {
			snippets = snippets[:maxResults]
		}
		return snippets, nil
	}
	return []retrieve.Snippet{{Text: text}}, nil
}
