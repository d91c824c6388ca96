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

// Package cache implements the content-addressed fingerprint store that
// memoizes classification and transformation results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/mod/semver"
)

// Fingerprint computes the cache key for one file: a sha256 over the
// normalized content, the source language and the canonical target version.
// Two files with identical normalized content and parameters share one key,
// within a run and across runs.
func Fingerprint(content, language, target string) string {
	h := sha256.New()
	h.Write([]byte(normalize(content)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(language)))
	h.Write([]byte{0})
	h.Write([]byte(canonicalTarget(target)))
	return hex.EncodeToString(h.Sum(nil))
}

// normalize strips carriage returns and trailing whitespace per line so that
// line-ending and editor noise does not bust the cache.
func normalize(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// canonicalTarget normalizes the target parameter, e.g. "Python 3.12" and
// "python3.12.0" fingerprint identically.
func canonicalTarget(target string) string {
	t := strings.ToLower(strings.TrimSpace(target))
	t = strings.ReplaceAll(t, " ", "")
	// Split a trailing version off the framework/language name and
	// canonicalize it with semver rules when it parses.
	i := strings.IndexFunc(t, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return t
	}
	name, ver := t[:i], t[i:]
	v := "v" + ver
	if semver.IsValid(v) {
		return name + strings.TrimPrefix(semver.Canonical(v), "v")
	}
	return t
}
