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

// Package retrieve finds context for a transformation: semantically similar
// files within the batch and external migration guidance.
package retrieve

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder is the embedding collaborator. The concrete model is replaceable;
// only vector dimensionality must be stable within a batch.
type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, error)
}

// HashEmbedder is a deterministic token-hashing embedder used for offline
// runs and tests. It projects token counts into a fixed number of buckets
// and L2-normalizes, so cosine similarity behaves sensibly for code files
// sharing identifiers and imports.
type HashEmbedder struct {
	// Dims is the vector size; defaults to 256.
	Dims int
}

// Embed implements Embedder. It never fails.
func (h HashEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	dims := h.Dims
	if dims <= 0 {
		dims = 256
	}
	vec := make([]float32, dims)
	for _, tok := range tokenize(content) {
		hash := fnv.New32a()
		hash.Write([]byte(tok))
		vec[hash.Sum32()%uint32(dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func tokenize(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// cosine returns the cosine similarity of two equal-length vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
