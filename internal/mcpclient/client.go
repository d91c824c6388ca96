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

// Package mcpclient wraps stdio MCP servers behind the collaborator
// interfaces the pipeline depends on: the memory cache, the search provider
// and the source-control host.
package mcpclient

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/relift-dev/relift/version"
)

// ServerConfig describes how to spawn one stdio MCP server.
type ServerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Envs    []string `yaml:"envs"`
}

// Client is a started stdio MCP client.
type Client struct {
	cli *client.Client
}

// NewClient spawns and initializes the server described by cfg.
func NewClient(ctx context.Context, cfg ServerConfig) (*Client, error) {
	if cfg.Command == "" {
		return nil, errors.New("mcp server command is empty")
	}
	cli, err := client.NewStdioMCPClient(cfg.Command, cfg.Envs, cfg.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "spawn mcp server")
	}
	if err := cli.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start mcp client")
	}
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "relift",
		Version: version.Version,
	}
	if _, err := cli.Initialize(ctx, initRequest); err != nil {
		return nil, errors.Wrap(err, "initialize mcp session")
	}
	return &Client{cli: cli}, nil
}

// Close shuts the server down.
func (c *Client) Close() error {
	return c.cli.Close()
}

// CallText calls tool name with args and returns the concatenated text
// content of the result.
func (c *Client) CallText(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.cli.CallTool(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "call tool %s", name)
	}
	var b strings.Builder
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			b.WriteString(tc.Text)
		case *mcp.TextContent:
			b.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", errors.Errorf("tool %s returned error: %s", name, b.String())
	}
	return b.String(), nil
}
