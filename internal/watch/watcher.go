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

// Package watch re-runs the pipeline when source files change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/classify"
	"github.com/relift-dev/relift/internal/log"
)

// defaultDebounce coalesces editor save bursts into one run.
const defaultDebounce = 2 * time.Second

// Watcher observes a directory tree and invokes Run after changes settle.
// Runs are serialized; events that arrive mid-run trigger one more run.
type Watcher struct {
	Root string
	// Run processes the batch. Its error is logged, not fatal: the watcher
	// keeps going until the context is canceled.
	Run func(ctx context.Context) error
	// Debounce is the quiet period before a run; default 2s.
	Debounce time.Duration
}

// Watch blocks until ctx is canceled. It performs one initial run before
// waiting for events.
func (w *Watcher) Watch(ctx context.Context) error {
	if w.Run == nil {
		return errors.New("watcher needs a Run callback")
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fs watcher")
	}
	defer fw.Close()
	if err := addTree(fw, w.Root); err != nil {
		return err
	}

	w.runOnce(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			// New directories need explicit registration.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						log.Warn("watch %s: %v", ev.Name, err)
					}
				}
			}
			log.Debug("change: %s %s", ev.Op, ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch: %v", err)
		case <-fire:
			timer = nil
			fire = nil
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	start := time.Now()
	if err := w.Run(ctx); err != nil {
		log.Error("run: %v", err)
		return
	}
	log.Info("run finished in %s", time.Since(start).Round(time.Millisecond))
}

// relevant filters out noise: temp files, excluded directories and
// non-code files.
func relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if classify.ExcludedDir(base) {
		return false
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return true
	}
	return classify.IsCodeFile(ev.Name)
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if classify.ExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return errors.Wrapf(fw.Add(path), "watch %s", path)
	})
}
