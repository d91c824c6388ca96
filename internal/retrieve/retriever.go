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

package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relift-dev/relift/internal/log"
)

// Snippet is one piece of external migration guidance.
type Snippet struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Text  string  `json:"snippet"`
	Score float64 `json:"score"`
}

// GuidanceClient is the external search collaborator. Implementations are
// best-effort; callers tolerate empty results.
type GuidanceClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]Snippet, error)
}

// Context is the retrieved context handed to the transformer.
type Context struct {
	Similar  []Similar
	Guidance []Snippet
}

// Summary renders a short description of the context for caching and the
// report.
func (c *Context) Summary() string {
	if c == nil {
		return ""
	}
	paths := make([]string, 0, len(c.Similar))
	for _, s := range c.Similar {
		paths = append(paths, s.Path)
	}
	return fmt.Sprintf("%d similar files (%s), %d guidance snippets",
		len(c.Similar), strings.Join(paths, ", "), len(c.Guidance))
}

// Retriever combines in-batch similarity search with external guidance.
type Retriever struct {
	Index    *Index
	Guidance GuidanceClient

	// K is the number of similarity hits to return; default 5.
	K int
	// GuidanceTimeout bounds the external search; default 10s.
	GuidanceTimeout time.Duration
	// MaxSnippets caps external results; default 5.
	MaxSnippets int
}

// Retrieve returns context for one file. Guidance retrieval failure is a
// soft degradation: it logs a warning and returns similarity-only context.
func (r *Retriever) Retrieve(ctx context.Context, path string, tags []string, language, target string) (*Context, error) {
	k := r.K
	if k <= 0 {
		k = 5
	}
	out := &Context{}
	if r.Index != nil {
		out.Similar = r.Index.Nearest(path, k)
	}

	if r.Guidance == nil || len(tags) == 0 {
		return out, nil
	}
	timeout := r.GuidanceTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxSnippets := r.MaxSnippets
	if maxSnippets <= 0 {
		maxSnippets = 5
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	query := fmt.Sprintf("%s %s migration guide best practices %s", language, target, strings.Join(tags, " "))
	snippets, err := r.Guidance.Search(gctx, query, maxSnippets)
	if err != nil {
		log.Warn("guidance retrieval degraded for %s: %v", path, err)
		return out, nil
	}
	out.Guidance = snippets
	return out, nil
}
