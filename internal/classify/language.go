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

package classify

import (
	"path/filepath"
	"strings"
)

// extLanguages maps file extensions to source languages.
var extLanguages = map[string]string{
	".py":    "python",
	".pyw":   "python",
	".java":  "java",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".cpp":   "cpp",
	".cc":    "cpp",
	".c":     "c",
	".h":     "c",
	".kt":    "kotlin",
	".rs":    "rust",
	".scala": "scala",
	".swift": "swift",
}

// excludedDirs are never walked during batch intake.
var excludedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	"dist":         {},
	"build":        {},
	"target":       {},
	".idea":        {},
	".vscode":      {},
}

// DetectLanguage returns the source language for path, falling back to a
// content sniff when the extension is unknown. Returns "" for non-code files.
func DetectLanguage(path, content string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	switch {
	case strings.Contains(content, "public class ") || strings.Contains(content, "import java."):
		return "java"
	case strings.Contains(content, "def ") && (strings.Contains(content, "import ") || strings.Contains(content, "from ")):
		return "python"
	case strings.Contains(content, "function ") || strings.Contains(content, "const ") || strings.Contains(content, "let "):
		return "javascript"
	}
	return ""
}

// IsCodeFile reports whether path has a recognized code extension.
func IsCodeFile(path string) bool {
	_, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExcludedDir reports whether a directory name is skipped during intake.
func ExcludedDir(name string) bool {
	_, ok := excludedDirs[name]
	return ok
}
