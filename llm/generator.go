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

package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/log"
)

var _ Generator = (*ChatGenerator)(nil)

// ChatGenerator binds a system prompt to a ChatModel and adds bounded
// retries with a per-call timeout. The underlying generation is not
// reproducible bit-for-bit; callers must not assume byte-identical output
// across calls with the same input.
type ChatGenerator struct {
	model     ChatModel
	sysPrompt string
	retries   int
	timeout   time.Duration
}

// ChatGeneratorOptions configures a ChatGenerator.
type ChatGeneratorOptions struct {
	SysPrompt string
	Retries   int           // default: 3
	Timeout   time.Duration // default: 600s
}

// NewChatGenerator creates a ChatGenerator over model.
func NewChatGenerator(model ChatModel, opts ChatGeneratorOptions) *ChatGenerator {
	retries := opts.Retries
	if retries == 0 {
		retries = 3
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 600 * time.Second
	}
	return &ChatGenerator{
		model:     model,
		sysPrompt: opts.SysPrompt,
		retries:   retries,
		timeout:   timeout,
	}
}

// Call implements Generator.
func (g *ChatGenerator) Call(ctx context.Context, input string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(g.sysPrompt),
		schema.UserMessage(input),
	}
	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		out, err := g.model.Generate(cctx, msgs)
		cancel()
		if err == nil {
			return out.Content, nil
		}
		lastErr = err
		log.Warn("LLM call attempt %d/%d failed: %v", attempt, g.retries, err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Linear backoff between retries.
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return "", errors.Wrapf(lastErr, "LLM call failed after %d attempts", g.retries)
}
