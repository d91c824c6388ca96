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

// Package pipeline drives work items through the modernization lifecycle:
// classification, context retrieval, transformation, sandbox validation and
// the bounded auto-fix loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/relift-dev/relift/internal/cache"
	"github.com/relift-dev/relift/internal/classify"
	"github.com/relift-dev/relift/internal/log"
	"github.com/relift-dev/relift/internal/retrieve"
	"github.com/relift-dev/relift/internal/sandbox"
	"github.com/relift-dev/relift/internal/transform"
	"github.com/relift-dev/relift/internal/work"
)

const (
	defaultConcurrency = 4
	defaultMaxAttempts = 3
)

// Options tunes a run. Zero values take the defaults above.
type Options struct {
	// Concurrency bounds the number of items in flight at once.
	Concurrency int
	// MaxAttempts is the total transformation attempt ceiling per item,
	// shared between the first attempt and auto-fix retries.
	MaxAttempts int
	// Target describes the modernization goal, e.g. "python3.12".
	Target string
}

// Orchestrator owns a batch run end to end. Collaborators are injected;
// Cache and Listener may be nil. Items are partitioned among workers, so no
// item is ever touched by two goroutines.
type Orchestrator struct {
	Classifier  classify.Classifier
	Retriever   *retrieve.Retriever
	Transformer transform.Transformer
	Runner      sandbox.Runner
	Cache       cache.Store
	Listener    Listener
	Opts        Options

	// The groups collapse concurrent duplicate fingerprints; the memos keep
	// the results so sequential duplicates reuse them too. Together they
	// guarantee the classifier and the first transformation run at most once
	// per unique fingerprint.
	classifyGroup  singleflight.Group
	transformGroup singleflight.Group
	classifyMemo   sync.Map // fingerprint -> *classify.Result
	transformMemo  sync.Map // fingerprint -> *work.Attempt
}

// Run processes every item of run to a terminal state and stamps
// FinishedAt. A canceled context stops scheduling; items that have not
// terminated are marked Skipped. Run returns an error only for setup
// problems, never for individual item failures.
func (o *Orchestrator) Run(ctx context.Context, run *work.BatchRun) error {
	if o.Classifier == nil || o.Transformer == nil || o.Runner == nil {
		return errors.New("orchestrator: classifier, transformer and runner are required")
	}
	concurrency := o.Opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	if o.Retriever != nil && o.Retriever.Index != nil {
		for _, it := range run.Items {
			if it.State.Terminal() {
				continue
			}
			if err := o.Retriever.Index.Add(ctx, it.Path, it.Content); err != nil {
				log.Warn("index %s: %v", it.Path, err)
			}
		}
	}

	// Higher priority first; path breaks ties so order is deterministic.
	queue := make([]*work.Item, 0, len(run.Items))
	for _, it := range run.Items {
		if !it.State.Terminal() {
			queue = append(queue, it)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Priority != queue[j].Priority {
			return queue[i].Priority > queue[j].Priority
		}
		return queue[i].Path < queue[j].Path
	})

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, it := range queue {
		it := it
		g.Go(func() error {
			o.process(ctx, run, it)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	// Cancellation can leave items untouched.
	for _, it := range run.Items {
		if !it.State.Terminal() {
			o.skip(run, it, "run canceled")
		}
	}
	run.FinishedAt = time.Now()
	return nil
}

// process takes one item to a terminal state. It never returns an error:
// every failure mode lands in the item itself.
func (o *Orchestrator) process(ctx context.Context, run *work.BatchRun, it *work.Item) {
	it.StartedAt = time.Now()
	if ctx.Err() != nil {
		o.skip(run, it, "run canceled")
		return
	}

	rec := o.cacheGet(ctx, it)
	if rec != nil {
		it.Patterns = rec.Patterns
		it.Priority = rec.Priority
		if err := o.advance(run, it, work.Retrieving, "cache-hit"); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
	} else {
		if err := o.advance(run, it, work.Classifying, ""); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
		res := o.classifyOnce(ctx, it)
		if res.Category == "skip" {
			o.skip(run, it, "classifier: nothing to modernize")
			return
		}
		it.Patterns = res.Patterns
		it.Priority = res.Priority()
		o.cachePut(ctx, it, nil)
		if err := o.advance(run, it, work.Retrieving, ""); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
	}

	rc := o.retrieveContext(ctx, it)
	it.Retrieved = rc.Summary()

	base := &transform.Request{
		Path:     it.Path,
		Language: it.Language,
		Target:   o.Opts.Target,
		Content:  it.Content,
		Tags:     it.Tags(),
		Context:  rc,
		Attempt:  1,
	}

	var att *work.Attempt
	if rec != nil && rec.Attempt != nil {
		att = rec.Attempt
		it.Attempts = append(it.Attempts, att)
		if err := o.advance(run, it, work.Validating, "cached-attempt"); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
	} else {
		if err := o.advance(run, it, work.Transforming, ""); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
		var err error
		att, err = o.transformOnce(ctx, it, base)
		if err != nil {
			o.routeTransformErr(run, it, err)
			return
		}
		it.Attempts = append(it.Attempts, att)
		if err := o.advance(run, it, work.Validating, ""); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
	}

	o.validateLoop(ctx, run, it, base, att)
}

// validateLoop runs the Validating <-> Fixing cycle until the item succeeds
// or the total attempt ceiling is reached. The item is in Validating with a
// fresh attempt appended on entry.
func (o *Orchestrator) validateLoop(ctx context.Context, run *work.BatchRun, it *work.Item, base *transform.Request, att *work.Attempt) {
	ceiling := o.Opts.MaxAttempts
	if ceiling <= 0 {
		ceiling = defaultMaxAttempts
	}

	for {
		res, err := o.Runner.Run(ctx, it.Language, att)
		if err != nil {
			o.fail(run, it, "sandbox: "+err.Error(), true)
			return
		}
		it.LastResult = res
		if res.Infrastructure {
			it.Infrastructure = true
		}

		if res.Pass {
			o.cachePut(ctx, it, att)
			if err := o.advance(run, it, work.Succeeded, attemptNote(len(it.Attempts), ceiling)); err != nil {
				o.fail(run, it, err.Error(), false)
			}
			return
		}
		if ctx.Err() != nil {
			o.skip(run, it, "run canceled")
			return
		}
		if len(it.Attempts) >= ceiling {
			o.fail(run, it, "attempt ceiling reached: "+firstLine(res.Diagnostics), res.Infrastructure)
			return
		}

		if err := o.advance(run, it, work.Fixing, attemptNote(len(it.Attempts), ceiling)); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
		fixed, err := o.Transformer.Transform(ctx, transform.BuildFixRequest(base, att, res))
		if err != nil {
			o.routeTransformErr(run, it, err)
			return
		}
		att = fixed
		it.Attempts = append(it.Attempts, att)
		if err := o.advance(run, it, work.Validating, ""); err != nil {
			o.fail(run, it, err.Error(), false)
			return
		}
	}
}

// classifyOnce runs the classifier at most once per fingerprint. A failure
// degrades to modernize_low with no patterns; classification quality never
// blocks transformation.
func (o *Orchestrator) classifyOnce(ctx context.Context, it *work.Item) *classify.Result {
	if v, ok := o.classifyMemo.Load(it.Fingerprint); ok {
		return v.(*classify.Result)
	}
	v, err, _ := o.classifyGroup.Do(it.Fingerprint, func() (interface{}, error) {
		res, err := o.Classifier.Classify(ctx, it.Path, it.Content, it.Language)
		if err != nil {
			return nil, err
		}
		o.classifyMemo.Store(it.Fingerprint, res)
		return res, nil
	})
	if err != nil {
		log.Warn("classification degraded for %s: %v", it.Path, err)
		return &classify.Result{Category: "modernize_low"}
	}
	return v.(*classify.Result)
}

// transformOnce collapses the first transformation of duplicate
// fingerprints. Attempts are immutable, so sharing the result is safe.
func (o *Orchestrator) transformOnce(ctx context.Context, it *work.Item, req *transform.Request) (*work.Attempt, error) {
	if v, ok := o.transformMemo.Load(it.Fingerprint); ok {
		return v.(*work.Attempt), nil
	}
	v, err, _ := o.transformGroup.Do(it.Fingerprint, func() (interface{}, error) {
		att, err := o.Transformer.Transform(ctx, req)
		if err != nil {
			return nil, err
		}
		o.transformMemo.Store(it.Fingerprint, att)
		return att, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*work.Attempt), nil
}

func (o *Orchestrator) retrieveContext(ctx context.Context, it *work.Item) *retrieve.Context {
	if o.Retriever == nil {
		return &retrieve.Context{}
	}
	rc, err := o.Retriever.Retrieve(ctx, it.Path, it.Tags(), it.Language, o.Opts.Target)
	if err != nil {
		log.Warn("retrieval degraded for %s: %v", it.Path, err)
		return &retrieve.Context{}
	}
	return rc
}

// cacheGet is a soft read: store errors are logged and treated as a miss.
func (o *Orchestrator) cacheGet(ctx context.Context, it *work.Item) *work.AnalysisRecord {
	if o.Cache == nil {
		return nil
	}
	rec, ok, err := o.Cache.Get(ctx, it.Fingerprint)
	if err != nil {
		log.Warn("cache read for %s: %v", it.Path, err)
		return nil
	}
	if !ok {
		return nil
	}
	return rec
}

// cachePut is a soft write; att may be nil for classification-only records.
func (o *Orchestrator) cachePut(ctx context.Context, it *work.Item, att *work.Attempt) {
	if o.Cache == nil {
		return
	}
	rec := &work.AnalysisRecord{
		Fingerprint: it.Fingerprint,
		Language:    it.Language,
		Patterns:    it.Patterns,
		Priority:    it.Priority,
		Attempt:     att,
		CreatedAt:   time.Now(),
	}
	if att != nil {
		rec.ContextSummary = it.Retrieved
	}
	if err := o.Cache.Put(ctx, rec); err != nil {
		log.Warn("cache write for %s: %v", it.Path, err)
	}
}

// routeTransformErr maps a transformation error to a terminal state. The
// generator retries transport failures internally, so an infrastructure
// error here means retries are exhausted.
func (o *Orchestrator) routeTransformErr(run *work.BatchRun, it *work.Item, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		o.skip(run, it, "run canceled")
		return
	}
	var infra *work.InfrastructureError
	if errors.As(err, &infra) {
		o.fail(run, it, err.Error(), true)
		return
	}
	o.fail(run, it, err.Error(), false)
}

func (o *Orchestrator) advance(run *work.BatchRun, it *work.Item, next work.State, note string) error {
	from := it.State
	if err := it.Advance(next); err != nil {
		return err
	}
	if next.Terminal() {
		it.FinishedAt = time.Now()
	}
	if o.Listener != nil {
		o.Listener(Event{RunID: run.ID, Path: it.Path, From: from, To: next, Note: note, Time: time.Now()})
	}
	return nil
}

func (o *Orchestrator) skip(run *work.BatchRun, it *work.Item, reason string) {
	if it.Err == "" {
		it.Err = reason
	}
	if err := o.advance(run, it, work.Skipped, reason); err != nil {
		log.Error("skip %s: %v", it.Path, err)
	}
}

func (o *Orchestrator) fail(run *work.BatchRun, it *work.Item, reason string, infra bool) {
	it.Err = reason
	if infra {
		it.Infrastructure = true
	}
	if err := o.advance(run, it, work.Failed, firstLine(reason)); err != nil {
		log.Error("fail %s: %v", it.Path, err)
	}
}

func attemptNote(n, ceiling int) string {
	return fmt.Sprintf("attempt %d/%d", n, ceiling)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
