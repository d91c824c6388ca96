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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relift-dev/relift/internal/cache"
	"github.com/relift-dev/relift/internal/classify"
	"github.com/relift-dev/relift/internal/config"
	"github.com/relift-dev/relift/internal/log"
	"github.com/relift-dev/relift/internal/mcpclient"
	"github.com/relift-dev/relift/internal/pipeline"
	"github.com/relift-dev/relift/internal/report"
	"github.com/relift-dev/relift/internal/retrieve"
	"github.com/relift-dev/relift/internal/sandbox"
	"github.com/relift-dev/relift/internal/transform"
	"github.com/relift-dev/relift/internal/watch"
	"github.com/relift-dev/relift/internal/work"
	"github.com/relift-dev/relift/llm"
	"github.com/relift-dev/relift/version"
)

const Usage = `relift <Action> <Path> [Flags]
Action:
   run          modernize the codebase at Path once and write the results
   watch        like run, but keep watching Path and re-run on changes
   version      print the version of relift
`

const (
	classifierSysPrompt  = "You are a code analysis assistant. Answer with JSON only."
	transformerSysPrompt = "You are a code modernization assistant. Preserve behavior exactly; follow the requested output format."
)

func main() {
	flags := flag.NewFlagSet("relift", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagOutput := flags.String("o", "relift-out", "Output directory.")
	flagConfig := flags.String("config", "", "Config file path.")
	flagTarget := flags.String("target", "", "Modernization target, e.g. python3.12 (overrides config).")
	flagConcurrency := flags.Int("concurrency", 0, "Max items in flight (overrides config).")
	flagMaxAttempts := flags.Int("max-fix-attempts", 0, "Total transformation attempts per file (overrides config).")
	flagOpenPR := flags.Bool("open-pr", false, "Open a pull request with the results (needs github config).")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(2)
	}
	action := os.Args[1]
	_ = flags.Parse(os.Args[2:])
	if *flagHelp {
		flags.Usage()
		os.Exit(0)
	}
	if *flagVerbose {
		log.SetLevel(log.DebugLevel)
	}

	switch action {
	case "version":
		fmt.Println(version.Version)
		return
	case "run", "watch":
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", action)
		flags.Usage()
		os.Exit(2)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "missing Path")
		flags.Usage()
		os.Exit(2)
	}
	root := flags.Arg(0)

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fatal(err)
	}
	if *flagTarget != "" {
		cfg.Target = *flagTarget
	}
	if *flagConcurrency > 0 {
		cfg.Concurrency = *flagConcurrency
	}
	if *flagMaxAttempts > 0 {
		cfg.MaxAttempts = *flagMaxAttempts
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg, *flagOpenPR)
	if err != nil {
		fatal(err)
	}

	switch action {
	case "run":
		failed, err := app.runBatch(ctx, root, *flagOutput)
		if err != nil {
			fatal(err)
		}
		if failed > 0 {
			os.Exit(1)
		}
	case "watch":
		w := &watch.Watcher{
			Root: root,
			Run: func(ctx context.Context) error {
				_, err := app.runBatch(ctx, root, *flagOutput)
				return err
			},
		}
		if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
			fatal(err)
		}
	}
}

// app holds the long-lived collaborators shared across batch runs.
type app struct {
	cfg       *config.Config
	orch      *pipeline.Orchestrator
	assembler *report.Assembler
	submitter report.Submitter
}

func newApp(ctx context.Context, cfg *config.Config, openPR bool) (*app, error) {
	classifier, err := buildClassifier(ctx, cfg)
	if err != nil {
		return nil, err
	}
	transformer, err := buildTransformer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.Memory != nil {
		cli, err := mcpclient.NewClient(ctx, *cfg.Memory)
		if err != nil {
			log.Warn("memory server unavailable, using in-process cache: %v", err)
		} else {
			store = mcpclient.NewMemoryStore(cli)
		}
	}

	retriever := &retrieve.Retriever{
		Index:           retrieve.NewIndex(&retrieve.HashEmbedder{}),
		K:               cfg.SimilarK,
		GuidanceTimeout: cfg.GuidanceTimeout,
	}
	if cfg.Search != nil {
		cli, err := mcpclient.NewClient(ctx, *cfg.Search)
		if err != nil {
			log.Warn("search server unavailable, similarity only: %v", err)
		} else {
			retriever.Guidance = mcpclient.NewSearchClient(cli)
		}
	}

	var submitter report.Submitter
	if openPR {
		if cfg.GitHub == nil {
			return nil, fmt.Errorf("-open-pr requires a github section in the config")
		}
		cli, err := mcpclient.NewClient(ctx, cfg.GitHub.Server)
		if err != nil {
			return nil, fmt.Errorf("github server: %w", err)
		}
		sub := mcpclient.NewGitHubSubmitter(cli, cfg.GitHub.Repo)
		if cfg.GitHub.BaseBranch != "" {
			sub.BaseBranch = cfg.GitHub.BaseBranch
		}
		submitter = sub
	}

	orch := &pipeline.Orchestrator{
		Classifier:  classifier,
		Retriever:   retriever,
		Transformer: transformer,
		Runner:      &sandbox.ExecRunner{Timeout: cfg.SandboxTimeout},
		Cache:       store,
		Listener:    logListener,
		Opts: pipeline.Options{
			Concurrency: cfg.Concurrency,
			MaxAttempts: cfg.MaxAttempts,
			Target:      cfg.Target,
		},
	}
	return &app{
		cfg:       cfg,
		orch:      orch,
		assembler: &report.Assembler{RiskExpression: cfg.RiskExpression},
		submitter: submitter,
	}, nil
}

// runBatch processes root once and returns the number of failed items.
func (a *app) runBatch(ctx context.Context, root, outDir string) (int, error) {
	// The in-batch index carries no state between runs.
	a.orch.Retriever.Index = retrieve.NewIndex(&retrieve.HashEmbedder{})

	run, err := pipeline.Intake(root, a.cfg.Target, pipeline.Filter{
		Include: a.cfg.Include,
		Exclude: a.cfg.Exclude,
	})
	if err != nil {
		return 0, err
	}
	if err := a.orch.Run(ctx, run); err != nil {
		return 0, err
	}

	rep, err := a.assembler.Assemble(run)
	if err != nil {
		return 0, err
	}
	if err := report.WriteOutput(outDir, run, rep); err != nil {
		return 0, err
	}
	counts := run.CountByState()
	log.Info("run %s: %d succeeded, %d failed, %d skipped; risk %.1f; output in %s",
		run.ID, counts[work.Succeeded], counts[work.Failed], counts[work.Skipped], rep.RiskScore, outDir)

	url, err := report.Submit(ctx, a.submitter, run, rep.Summary())
	if err != nil {
		// Submission is never retried automatically; rerun with -open-pr.
		log.Error("change request failed (rerun to retry): %v", err)
	} else if url != "" {
		log.Info("change request opened: %s", url)
	}
	return counts[work.Failed], nil
}

func buildClassifier(ctx context.Context, cfg *config.Config) (classify.Classifier, error) {
	gen, err := buildGenerator(ctx, cfg, "classifier", classifierSysPrompt)
	if err != nil {
		return nil, err
	}
	return classify.Soft{Inner: classify.NewLLMClassifier(gen)}, nil
}

func buildTransformer(ctx context.Context, cfg *config.Config) (transform.Transformer, error) {
	gen, err := buildGenerator(ctx, cfg, "transformer", transformerSysPrompt)
	if err != nil {
		return nil, err
	}
	return transform.NewLLMTransformer(gen), nil
}

func buildGenerator(ctx context.Context, cfg *config.Config, role, sysPrompt string) (llm.Generator, error) {
	mc, ok := cfg.Model(role)
	if !ok {
		return nil, fmt.Errorf("no model configured for %s (set models.%s or models.default)", role, role)
	}
	model, err := llm.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("model for %s: %w", role, err)
	}
	return llm.NewChatGenerator(model, llm.ChatGeneratorOptions{
		SysPrompt: sysPrompt,
		Retries:   mc.Retries,
		Timeout:   mc.Timeout,
	}), nil
}

func logListener(ev pipeline.Event) {
	if ev.Note != "" {
		log.Info("%s: %s -> %s (%s)", ev.Path, ev.From, ev.To, ev.Note)
		return
	}
	log.Debug("%s: %s -> %s", ev.Path, ev.From, ev.To)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "relift: %v\n", err)
	os.Exit(1)
}
