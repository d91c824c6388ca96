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

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relift-dev/relift/internal/work"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIntake_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "print 'hello'\n")
	writeFile(t, dir, "lib/util.js", "var x = 1;\n")
	writeFile(t, dir, "empty.py", "")
	writeFile(t, dir, "README.md", "# readme\n")
	writeFile(t, dir, "node_modules/dep/index.js", "module.exports = 1;\n")

	run, err := Intake(dir, "python3.12", Filter{})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}

	byPath := map[string]*work.Item{}
	for _, it := range run.Items {
		byPath[it.Path] = it
	}
	if _, ok := byPath["README.md"]; ok {
		t.Error("non-code file must not be taken in")
	}
	if _, ok := byPath["node_modules/dep/index.js"]; ok {
		t.Error("excluded directories must be pruned")
	}

	app := byPath["app.py"]
	if app == nil {
		t.Fatal("app.py missing")
	}
	if app.State != work.Queued {
		t.Errorf("app.py: got %s, want queued", app.State)
	}
	if app.Language != "python" {
		t.Errorf("app.py language: got %s", app.Language)
	}
	if app.Fingerprint == "" || app.ID == "" {
		t.Error("fingerprint and id must be set")
	}

	empty := byPath["empty.py"]
	if empty == nil {
		t.Fatal("empty.py missing")
	}
	if empty.State != work.Skipped {
		t.Errorf("empty file: got %s, want skipped", empty.State)
	}
	if empty.Err == "" {
		t.Error("skipped item must record a reason")
	}

	util := byPath["lib/util.js"]
	if util == nil || util.Language != "javascript" {
		t.Errorf("lib/util.js: %+v", util)
	}
}

func TestIntake_ExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "gen/schema_pb2.py", "x = 2\n")
	writeFile(t, dir, "conftest.py", "x = 3\n")

	run, err := Intake(dir, "python3.12", Filter{Exclude: []string{"*_pb2.py", "conftest.py"}})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if len(run.Items) != 1 || run.Items[0].Path != "app.py" {
		var paths []string
		for _, it := range run.Items {
			paths = append(paths, it.Path)
		}
		t.Errorf("got %v, want only app.py", paths)
	}
}

func TestIntake_IncludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "legacy/old.py", "x = 2\n")
	writeFile(t, dir, "web/index.js", "var a = 1\n")

	run, err := Intake(dir, "python3.12", Filter{
		Include: []string{"*.py"},
		Exclude: []string{"legacy/*"},
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if len(run.Items) != 1 || run.Items[0].Path != "app.py" {
		var paths []string
		for _, it := range run.Items {
			paths = append(paths, it.Path)
		}
		t.Errorf("got %v, want only app.py", paths)
	}
}

func TestIntake_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "legacy.java", "import java.util.Vector;\n")

	run, err := Intake(filepath.Join(dir, "legacy.java"), "java21", Filter{})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if len(run.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(run.Items))
	}
	it := run.Items[0]
	if it.Path != "legacy.java" || it.Language != "java" || it.State != work.Queued {
		t.Errorf("unexpected item: %+v", it)
	}
}

func TestIntake_SingleFileHonorsFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schema_pb2.py", "x = 1\n")

	run, err := Intake(filepath.Join(dir, "schema_pb2.py"), "python3.12",
		Filter{Exclude: []string{"*_pb2.py"}})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if len(run.Items) != 0 {
		t.Errorf("excluded single file must yield no items, got %+v", run.Items)
	}
}

func TestIntake_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.py", "x = 1\n")
	writeFile(t, dir, "a.py", "y = 2\n")
	writeFile(t, dir, "c.py", "z = 3\n")

	first, err := Intake(dir, "python3.12", Filter{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Intake(dir, "python3.12", Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Items) != len(second.Items) {
		t.Fatal("item counts differ")
	}
	for i := range first.Items {
		if first.Items[i].Path != second.Items[i].Path {
			t.Errorf("order differs at %d: %s vs %s", i, first.Items[i].Path, second.Items[i].Path)
		}
		if first.Items[i].Fingerprint != second.Items[i].Fingerprint {
			t.Errorf("%s: fingerprints differ across runs", first.Items[i].Path)
		}
	}
}

func TestIntake_MissingRoot(t *testing.T) {
	if _, err := Intake(filepath.Join(t.TempDir(), "nope"), "x", Filter{}); err == nil {
		t.Fatal("expected error for missing root")
	}
}
