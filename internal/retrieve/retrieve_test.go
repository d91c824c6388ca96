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
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := HashEmbedder{}
	a, err := e.Embed(ctx, "import os\nprint(os.getcwd())")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "import os\nprint(os.getcwd())")
	if len(a) != 256 {
		t.Errorf("dims: got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("embedding must be deterministic")
		}
	}
	if s := cosine(a, b); s < 0.999 {
		t.Errorf("self similarity: got %v", s)
	}
}

func TestIndex_NearestPrefersSharedVocabulary(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(HashEmbedder{})

	files := map[string]string{
		"db/users.py":  "import MySQLdb\ndef query_users(conn): conn.execute('SELECT * FROM users')",
		"db/orders.py": "import MySQLdb\ndef query_orders(conn): conn.execute('SELECT * FROM orders')",
		"ui/render.js": "function render(tree) { return tree.map(draw); }",
	}
	for p, c := range files {
		if err := ix.Add(ctx, p, c); err != nil {
			t.Fatal(err)
		}
	}

	hits := ix.Nearest("db/users.py", 2)
	if len(hits) != 2 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].Path != "db/orders.py" {
		t.Errorf("nearest: got %s, want the sibling db module", hits[0].Path)
	}
	if hits[0].Score <= hits[1].Score {
		t.Error("ranking must be by descending similarity")
	}
	for _, h := range hits {
		if h.Path == "db/users.py" {
			t.Error("query file must be excluded from its own hits")
		}
	}
}

func TestIndex_NearestUnknownPath(t *testing.T) {
	ix := NewIndex(HashEmbedder{})
	if hits := ix.Nearest("ghost.py", 3); hits != nil {
		t.Errorf("got %v, want nil", hits)
	}
}

type fakeGuidance struct {
	snippets []Snippet
	err      error
	gotQuery string
}

func (f *fakeGuidance) Search(ctx context.Context, query string, maxResults int) ([]Snippet, error) {
	f.gotQuery = query
	return f.snippets, f.err
}

func TestRetriever_CombinesSimilarAndGuidance(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(HashEmbedder{})
	_ = ix.Add(ctx, "a.py", "import urllib2")
	_ = ix.Add(ctx, "b.py", "import urllib2")

	g := &fakeGuidance{snippets: []Snippet{{Title: "urllib migration", Text: "use urllib.request"}}}
	r := &Retriever{Index: ix, Guidance: g}

	rc, err := r.Retrieve(ctx, "a.py", []string{"deprecated-library"}, "python", "python3.12")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(rc.Similar) != 1 || rc.Similar[0].Path != "b.py" {
		t.Errorf("similar: %v", rc.Similar)
	}
	if len(rc.Guidance) != 1 {
		t.Errorf("guidance: %v", rc.Guidance)
	}
	for _, part := range []string{"python", "python3.12", "deprecated-library"} {
		if !strings.Contains(g.gotQuery, part) {
			t.Errorf("query %q missing %q", g.gotQuery, part)
		}
	}
	if rc.Summary() == "" {
		t.Error("summary must describe the context")
	}
}

func TestRetriever_GuidanceFailureDegrades(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(HashEmbedder{})
	_ = ix.Add(ctx, "a.py", "x = 1")
	_ = ix.Add(ctx, "b.py", "x = 2")

	r := &Retriever{Index: ix, Guidance: &fakeGuidance{err: fmt.Errorf("search down")}}
	rc, err := r.Retrieve(ctx, "a.py", []string{"tag"}, "python", "py3")
	if err != nil {
		t.Fatalf("guidance failure must not fail retrieval: %v", err)
	}
	if len(rc.Guidance) != 0 {
		t.Error("no guidance expected")
	}
	if len(rc.Similar) == 0 {
		t.Error("similarity results must survive")
	}
}

func TestRetriever_NoTagsSkipsGuidance(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(HashEmbedder{})
	_ = ix.Add(ctx, "a.py", "x = 1")

	g := &fakeGuidance{snippets: []Snippet{{Title: "t"}}}
	r := &Retriever{Index: ix, Guidance: g}
	rc, err := r.Retrieve(ctx, "a.py", nil, "python", "py3")
	if err != nil {
		t.Fatal(err)
	}
	if g.gotQuery != "" {
		t.Error("guidance must not be queried without tags")
	}
	if len(rc.Guidance) != 0 {
		t.Errorf("guidance: %v", rc.Guidance)
	}
}

func TestRetriever_NilIndex(t *testing.T) {
	g := &fakeGuidance{snippets: []Snippet{{Title: "t"}}}
	r := &Retriever{Guidance: g}
	rc, err := r.Retrieve(context.Background(), "a.py", []string{"py2-print"}, "python", "py3")
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.Similar) != 0 {
		t.Errorf("similar: %v", rc.Similar)
	}
	if len(rc.Guidance) != 1 {
		t.Errorf("guidance must still be queried: %v", rc.Guidance)
	}
}
