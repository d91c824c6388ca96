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

package transform

import (
	"fmt"
	"strings"

	"github.com/relift-dev/relift/internal/work"
)

// maxDiagnosticChars bounds how much sandbox output is replayed into a fix
// prompt; compiler and test runners can be extremely verbose.
const maxDiagnosticChars = 6000

// BuildFixRequest derives the follow-up request for a failed attempt: the
// base request plus the previous code and the sandbox diagnostics. The
// attempt number is incremented; the ceiling is enforced by the caller.
func BuildFixRequest(base *Request, prev *work.Attempt, res *work.SandboxResult) *Request {
	fix := *base
	fix.Attempt = prev.Number + 1
	fix.PrevCode = prev.Code
	fix.Diagnostics = truncate(res.Diagnostics, maxDiagnosticChars)
	if fix.Diagnostics == "" {
		// Keeps the request recognizable as a fix even when the runner
		// produced no output.
		fix.Diagnostics = fmt.Sprintf("%d of %d tests failed with no diagnostic output", res.TestsFailed, res.TestsRun)
	}
	return &fix
}

func buildFixPrompt(req *Request) string {
	var b strings.Builder
	b.WriteString("You are an expert code modernization assistant. A previous modernization attempt failed validation in the sandbox. Fix it.\n\n")
	fmt.Fprintf(&b, "FILE: %s\nLANGUAGE: %s\nTARGET: %s\nATTEMPT: %d\n", req.Path, req.Language, req.Target, req.Attempt)
	fmt.Fprintf(&b, "\nORIGINAL CODE:\n```\n%s\n```\n", req.Content)
	fmt.Fprintf(&b, "\nPREVIOUS ATTEMPT (failed):\n```\n%s\n```\n", req.PrevCode)
	fmt.Fprintf(&b, "\nSANDBOX DIAGNOSTICS:\n```\n%s\n```\n", req.Diagnostics)
	b.WriteString(`
RULES:
- Fix the reported failures while keeping the modernization goals.
- Preserve the public interface and behavior of the original code.
- Return ONLY the complete corrected file in a single fenced code block.
`)
	return b.String()
}
