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

package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/log"
	"github.com/relift-dev/relift/internal/work"
)

// ExecRunner runs attempts in a throwaway temp directory with a scrubbed
// environment and a kill-timeout. It is the local stand-in for a container
// sandbox: isolated per invocation, auto-cleaned, no persistent state.
type ExecRunner struct {
	// Timeout bounds one execution; default 2 minutes.
	Timeout time.Duration
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, language string, attempt *work.Attempt) (*work.SandboxResult, error) {
	if attempt == nil {
		return nil, errors.New("sandbox: nil attempt")
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	dir, err := os.MkdirTemp("", "relift-sandbox-*")
	if err != nil {
		return infraResult(fmt.Sprintf("create sandbox dir: %v", err)), nil
	}
	defer os.RemoveAll(dir)

	cmds, diag, ok := stage(dir, language, attempt)
	if !ok {
		return infraResult(diag), nil
	}

	start := time.Now()
	var out strings.Builder
	for _, argv := range cmds {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		// Scrubbed environment: no tokens or proxies leak into executed code.
		cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir, "LANG=C.UTF-8"}
		raw, runErr := cmd.CombinedOutput()
		cancel()
		out.Write(raw)

		if cctx.Err() == context.DeadlineExceeded {
			return &work.SandboxResult{
				Pass:        false,
				Diagnostics: out.String() + "\nexecution timed out",
				Duration:    time.Since(start),
			}, nil
		}
		if runErr != nil {
			if isSpawnFailure(runErr) {
				return infraResult(fmt.Sprintf("%s not available: %v", argv[0], runErr)), nil
			}
			// Non-zero exit: failing tests or a crash. Parse what we can.
			res := parseOutput(language, out.String())
			res.Pass = false
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	res := parseOutput(language, out.String())
	res.Pass = true
	res.Duration = time.Since(start)
	return res, nil
}

// stage writes the attempt into dir and returns the commands to run.
// Returns ok=false with a diagnostic when the language is unsupported.
func stage(dir, language string, attempt *work.Attempt) (cmds [][]string, diag string, ok bool) {
	write := func(name, content string) bool {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			diag = fmt.Sprintf("stage %s: %v", name, err)
			return false
		}
		return true
	}
	switch language {
	case "python":
		if !write("module.py", attempt.Code) || !write("test_module.py", attempt.Tests) {
			return nil, diag, false
		}
		return [][]string{{"python3", "-m", "pytest", "test_module.py", "-v", "--tb=short", "-p", "no:warnings"}}, "", true
	case "javascript":
		if !write("module.js", attempt.Code) || !write("module.test.js", attempt.Tests) {
			return nil, diag, false
		}
		return [][]string{{"npx", "--no-install", "jest", "module.test.js"}}, "", true
	case "typescript":
		if !write("module.ts", attempt.Code) || !write("module.test.ts", attempt.Tests) {
			return nil, diag, false
		}
		return [][]string{{"npx", "--no-install", "jest", "module.test.ts"}}, "", true
	case "java":
		cls := javaClassName(attempt.Code)
		if !write(cls+".java", attempt.Code) || !write(cls+"Test.java", attempt.Tests) {
			return nil, diag, false
		}
		return [][]string{
			{"javac", cls + ".java", cls + "Test.java"},
			{"java", cls + "Test"},
		}, "", true
	case "go":
		// go test refuses to run outside a module; a throwaway go.mod makes
		// the staged pair a minimal module of its own.
		if !write("go.mod", "module sandbox\n\ngo 1.21\n") ||
			!write("module.go", attempt.Code) || !write("module_test.go", attempt.Tests) {
			return nil, diag, false
		}
		return [][]string{{"go", "test", "-count=1", "."}}, "", true
	default:
		return nil, fmt.Sprintf("unsupported sandbox language: %s", language), false
	}
}

var javaClassRe = regexp.MustCompile(`public\s+class\s+(\w+)`)

func javaClassName(code string) string {
	if m := javaClassRe.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return "Module"
}

// infraResult flags the sandbox itself as the failure cause. The
// orchestrator retries it like a validation failure but the report marks it
// apart.
func infraResult(diag string) *work.SandboxResult {
	log.Warn("sandbox infrastructure failure: %s", diag)
	return &work.SandboxResult{Pass: false, Diagnostics: diag, Infrastructure: true}
}

var (
	pytestSummaryRe = regexp.MustCompile(`(\d+) passed`)
	pytestFailedRe  = regexp.MustCompile(`(\d+) failed`)
	pytestErrorRe   = regexp.MustCompile(`(\d+) error`)
	coverageRe      = regexp.MustCompile(`(?:TOTAL|coverage:?)\s.*?(\d+(?:\.\d+)?)%`)
	jestTestsRe     = regexp.MustCompile(`Tests:\s+(?:(\d+) failed, )?(?:(\d+) skipped, )?(\d+) passed, (\d+) total`)
)

// parseOutput extracts test counts and coverage from runner output. Counts
// stay zero when the output is unrecognized; diagnostics always carry the
// raw output.
func parseOutput(language, out string) *work.SandboxResult {
	res := &work.SandboxResult{Diagnostics: out}
	switch language {
	case "python":
		if m := pytestSummaryRe.FindStringSubmatch(out); m != nil {
			res.TestsPassed, _ = strconv.Atoi(m[1])
		}
		if m := pytestFailedRe.FindStringSubmatch(out); m != nil {
			res.TestsFailed, _ = strconv.Atoi(m[1])
		}
		if m := pytestErrorRe.FindStringSubmatch(out); m != nil {
			n, _ := strconv.Atoi(m[1])
			res.TestsFailed += n
		}
	case "javascript", "typescript":
		if m := jestTestsRe.FindStringSubmatch(out); m != nil {
			if m[1] != "" {
				res.TestsFailed, _ = strconv.Atoi(m[1])
			}
			res.TestsPassed, _ = strconv.Atoi(m[3])
		}
	case "go":
		res.TestsPassed = strings.Count(out, "--- PASS")
		res.TestsFailed = strings.Count(out, "--- FAIL")
	}
	res.TestsRun = res.TestsPassed + res.TestsFailed
	if m := coverageRe.FindStringSubmatch(out); m != nil {
		res.Coverage, _ = strconv.ParseFloat(m[1], 64)
	}
	return res
}

func isSpawnFailure(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist)
}
