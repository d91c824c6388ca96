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
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/tools/txtar"

	"github.com/relift-dev/relift/internal/work"
)

// WriteOutput materializes a finished run under dir:
//
//	dir/modernized/<path>  modernized files (Succeeded items only)
//	dir/original/<path>    originals of every processed file (the rollback set)
//	dir/tests/<path>       generated test suites
//	dir/report.md          the markdown summary
//	dir/bundle.txtar       single-file archive of everything above
func WriteOutput(dir string, run *work.BatchRun, rep *Report) error {
	arch := &txtar.Archive{Comment: []byte("relift run " + run.ID + "\n")}
	add := func(rel string, content string) error {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return errors.Wrapf(err, "mkdir for %s", rel)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", rel)
		}
		arch.Files = append(arch.Files, txtar.File{Name: rel, Data: []byte(content)})
		return nil
	}

	for _, it := range run.Items {
		if it.State == work.Skipped {
			continue
		}
		if err := add("original/"+it.Path, it.Content); err != nil {
			return err
		}
		att := it.LastAttempt()
		if att == nil || it.State != work.Succeeded {
			continue
		}
		if err := add("modernized/"+it.Path, att.Code); err != nil {
			return err
		}
		if att.Tests != "" {
			if err := add("tests/"+testName(it.Path), att.Tests); err != nil {
				return err
			}
		}
	}
	if err := add("report.md", rep.Summary()); err != nil {
		return err
	}
	bundle := filepath.Join(dir, "bundle.txtar")
	if err := os.WriteFile(bundle, txtar.Format(arch), 0o644); err != nil {
		return errors.Wrap(err, "write bundle")
	}
	return nil
}

// ChangedFiles returns the modernized content of every succeeded item,
// keyed by path, the payload for the change request.
func ChangedFiles(run *work.BatchRun) map[string]string {
	files := make(map[string]string)
	for _, it := range run.Items {
		if it.State != work.Succeeded {
			continue
		}
		if att := it.LastAttempt(); att != nil {
			files[it.Path] = att.Code
			if att.Tests != "" {
				files["tests/"+testName(it.Path)] = att.Tests
			}
		}
	}
	return files
}

func testName(path string) string {
	dir, base := filepath.Split(path)
	return dir + "test_" + base
}
