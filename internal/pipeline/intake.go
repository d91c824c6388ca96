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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/cache"
	"github.com/relift-dev/relift/internal/classify"
	"github.com/relift-dev/relift/internal/log"
	"github.com/relift-dev/relift/internal/work"
)

// maxFileSize bounds one input file; larger files are skipped as a fatal
// precondition rather than fed to the model.
const maxFileSize = 1 << 20

// Filter restricts which files under the batch root become work items.
// Patterns are globs matched against the batch-relative path and the base
// name. An empty Include list admits every code file; Exclude always wins.
type Filter struct {
	Include []string
	Exclude []string
}

func (f Filter) admits(rel string) bool {
	if matchAny(f.Exclude, rel) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	return matchAny(f.Include, rel)
}

// Intake builds a BatchRun from root, which may be a single file or a
// directory tree. Unreadable or empty files become items that are already
// Skipped; everything else starts Queued. Item order is deterministic.
func Intake(root, target string, filter Filter) (*work.BatchRun, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", root)
	}
	run := work.NewBatchRun(root, target)

	var paths []string
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if classify.ExcludedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if classify.IsCodeFile(path) {
				rel, rerr := filepath.Rel(root, path)
				if rerr != nil {
					return rerr
				}
				rel = filepath.ToSlash(rel)
				if !filter.admits(rel) {
					return nil
				}
				paths = append(paths, rel)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", root)
		}
	} else if rel := filepath.Base(root); filter.admits(rel) {
		paths = []string{rel}
	}
	sort.Strings(paths)

	for _, rel := range paths {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if !info.IsDir() {
			full = root
		}
		run.Items = append(run.Items, newItem(rel, full, target))
	}
	log.Info("intake: %d files under %s", len(run.Items), root)
	return run, nil
}

func newItem(rel, full, target string) *work.Item {
	it := &work.Item{Path: rel, State: work.Queued}

	raw, err := os.ReadFile(full)
	if err != nil {
		skipFatal(it, fmt.Sprintf("unreadable: %v", err))
		return it
	}
	if len(raw) == 0 {
		skipFatal(it, "empty file")
		return it
	}
	if len(raw) > maxFileSize {
		skipFatal(it, fmt.Sprintf("file too large (%d bytes)", len(raw)))
		return it
	}
	it.Content = string(raw)
	it.Language = classify.DetectLanguage(rel, it.Content)
	if it.Language == "" {
		skipFatal(it, "not a recognized code file")
		return it
	}
	sum := sha256.Sum256(raw)
	it.ID = rel + "@" + hex.EncodeToString(sum[:4])
	it.Fingerprint = cache.Fingerprint(it.Content, it.Language, target)
	it.Priority = intakePriority(it.Language, len(raw))
	return it
}

func matchAny(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

func skipFatal(it *work.Item, reason string) {
	it.Err = (&work.FatalPreconditionError{Path: it.Path, Reason: reason}).Error()
	it.State = work.Skipped
}

// intakePriority is the pure scheduling score used before classification
// refines priorities. It only orders work within the concurrency bound.
func intakePriority(language string, size int) float64 {
	base := map[string]float64{
		"php": 30, "java": 25, "python": 20, "javascript": 20,
		"c": 15, "cpp": 15, "ruby": 15,
	}[strings.ToLower(language)]
	kb := float64(size) / 1024
	if kb > 20 {
		kb = 20
	}
	return base + kb
}
