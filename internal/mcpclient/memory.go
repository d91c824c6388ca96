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

package mcpclient

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/relift-dev/relift/internal/work"
)

// MemoryStore is a cache.Store backed by a memory MCP server, sharing
// analysis records across runs. Records are stored as named entities whose
// content is the JSON-encoded record.
type MemoryStore struct {
	client *Client
}

// NewMemoryStore wraps an already-started memory server client.
func NewMemoryStore(client *Client) *MemoryStore {
	return &MemoryStore{client: client}
}

func entityName(fp string) string { return "analysis_" + fp }

// Get implements cache.Store.
func (m *MemoryStore) Get(ctx context.Context, fp string) (*work.AnalysisRecord, bool, error) {
	text, err := m.client.CallText(ctx, "retrieve_entity", map[string]any{
		"name": entityName(fp),
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "memory get")
	}
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return nil, false, nil
	}
	var rec work.AnalysisRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		// An unparsable entity counts as a miss; the record will be
		// recomputed and rewritten.
		return nil, false, nil
	}
	if rec.Fingerprint == "" {
		return nil, false, nil
	}
	return &rec, true, nil
}

// Put implements cache.Store. First-writer-wins: an existing record with a
// transformation attempt is never replaced.
func (m *MemoryStore) Put(ctx context.Context, rec *work.AnalysisRecord) error {
	if rec == nil || rec.Fingerprint == "" {
		return nil
	}
	if existing, ok, err := m.Get(ctx, rec.Fingerprint); err == nil && ok {
		if existing.Attempt != nil || rec.Attempt == nil {
			return nil
		}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	_, err = m.client.CallText(ctx, "store_entity", map[string]any{
		"name":    entityName(rec.Fingerprint),
		"content": string(raw),
	})
	return errors.Wrap(err, "memory put")
}
