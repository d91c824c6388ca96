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

// Package config loads the relift configuration file.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/relift-dev/relift/internal/mcpclient"
	"github.com/relift-dev/relift/llm"
)

// Config is the full file format. Every field has a working default; an
// empty file yields a runnable (offline) configuration.
type Config struct {
	// Target describes the modernization goal, e.g. "python3.12".
	Target string `yaml:"target"`

	// Models maps roles to endpoints. Recognized roles are "classifier"
	// and "transformer"; the "default" entry backs any missing role.
	Models map[string]llm.ModelConfig `yaml:"models"`

	// Concurrency bounds items in flight; default 4.
	Concurrency int `yaml:"concurrency"`
	// MaxAttempts is the total transformation attempt ceiling per item,
	// first attempt included; default 3.
	MaxAttempts int `yaml:"max_attempts"`

	// SimilarK is the number of in-batch similarity hits per file.
	SimilarK int `yaml:"similar_k"`
	// GuidanceTimeout bounds one external guidance lookup.
	GuidanceTimeout time.Duration `yaml:"guidance_timeout"`

	// SandboxTimeout bounds one sandbox execution.
	SandboxTimeout time.Duration `yaml:"sandbox_timeout"`

	// RiskExpression overrides the default risk-score formula.
	RiskExpression string `yaml:"risk_expression"`

	// Include and Exclude hold glob patterns matched against batch-relative
	// paths and base names. A non-empty Include admits only matching files;
	// Exclude removes files and always wins.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// MCP servers are all optional; a missing server disables the
	// corresponding collaborator and the pipeline degrades.
	Memory *mcpclient.ServerConfig `yaml:"memory"`
	Search *mcpclient.ServerConfig `yaml:"search"`
	GitHub *GitHubConfig           `yaml:"github"`
}

// GitHubConfig describes where change requests are opened.
type GitHubConfig struct {
	Server     mcpclient.ServerConfig `yaml:"server"`
	Repo       string                 `yaml:"repo"`        // "owner/name"
	BaseBranch string                 `yaml:"base_branch"` // default "main"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Target:          "latest stable",
		Concurrency:     4,
		MaxAttempts:     3,
		SimilarK:        5,
		GuidanceTimeout: 10 * time.Second,
		SandboxTimeout:  2 * time.Minute,
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Concurrency < 0 {
		return errors.New("concurrency must be positive")
	}
	if c.MaxAttempts < 0 {
		return errors.New("max_attempts must be positive")
	}
	if c.GitHub != nil && c.GitHub.Repo == "" {
		return errors.New("github.repo is required when github is configured")
	}
	for role, m := range c.Models {
		if m.ModelName == "" {
			return errors.Errorf("models.%s: model_name is required", role)
		}
		if llm.NewModelType(string(m.APIType)) == llm.ModelTypeUnknown {
			return errors.Errorf("models.%s: unknown type %q", role, m.APIType)
		}
	}
	return nil
}

// Model resolves the endpoint for a role, falling back to "default".
// ok is false when neither is configured.
func (c *Config) Model(role string) (llm.ModelConfig, bool) {
	if m, ok := c.Models[role]; ok {
		return m, true
	}
	m, ok := c.Models["default"]
	return m, ok
}
