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
	"fmt"
	"strings"
)

// Unified renders a minimal unified diff between two file contents. For
// pathological inputs (huge files) it falls back to a whole-file
// replacement diff rather than spending quadratic time.
func Unified(path, before, after string) string {
	if before == after {
		return ""
	}
	a := strings.Split(before, "\n")
	b := strings.Split(after, "\n")

	var body string
	if len(a)*len(b) > 4_000_000 {
		body = replaceAll(a, b)
	} else {
		body = diffLines(a, b)
	}
	return fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", path, path, body)
}

func replaceAll(a, b []string) string {
	var sb strings.Builder
	for _, l := range a {
		sb.WriteString("-" + l + "\n")
	}
	for _, l := range b {
		sb.WriteString("+" + l + "\n")
	}
	return sb.String()
}

// diffLines emits an LCS-based line diff with single-line context markers.
func diffLines(a, b []string) string {
	// LCS table.
	m, n := len(a), len(b)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}
	var sb strings.Builder
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			sb.WriteString(" " + a[i] + "\n")
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			sb.WriteString("-" + a[i] + "\n")
			i++
		default:
			sb.WriteString("+" + b[j] + "\n")
			j++
		}
	}
	for ; i < m; i++ {
		sb.WriteString("-" + a[i] + "\n")
	}
	for ; j < n; j++ {
		sb.WriteString("+" + b[j] + "\n")
	}
	return sb.String()
}
