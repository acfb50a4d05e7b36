// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes trace remapping as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotandev/retrace/internal/diag"
	"github.com/dotandev/retrace/internal/logger"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RemapArgs are the arguments of the remap_stacktrace tool.
type RemapArgs struct {
	Version        string `json:"version" jsonschema:"Game version the trace was produced by, e.g. 1.20.1"`
	From           string `json:"from" jsonschema:"Namespace the trace is in: obf, mojang or fabric"`
	To             string `json:"to" jsonschema:"Namespace to rewrite the trace into: obf, mojang or fabric"`
	Trace          string `json:"trace" jsonschema:"The Java stack trace text"`
	RemapFileNames bool   `json:"remap_file_names,omitempty" jsonschema:"Also rewrite source file names of frames"`
	JoinAmbiguous  bool   `json:"join_ambiguous,omitempty" jsonschema:"Render ambiguous overloads as name1/name2"`
}

// CheckArgs are the arguments of the check_mappings tool.
type CheckArgs struct {
	Name     string `json:"name,omitempty" jsonschema:"File name used in diagnostics"`
	Mappings string `json:"mappings" jsonschema:"The mapping file text"`
	Format   string `json:"format,omitempty" jsonschema:"auto, proguard or tiny"`
}

// ChainSource builds remapping chains. *provider.Provider implements it.
type ChainSource interface {
	Chain(ctx context.Context, version string, from, to names.Namespace, opts remap.Options) (remap.Chain, error)
}

// Server wraps an MCP server with the retrace tools registered.
type Server struct {
	mcpServer *mcp.Server
	chains    ChainSource
}

// New creates the server. version is reported to clients.
func New(chains ChainSource, version string) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: "retrace", Version: version}, nil),
		chains:    chains,
	}
	s.registerTools()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *mcp.Server { return s.mcpServer }

// Run serves on stdin and stdout until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	logger.Logger.Info("Starting MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "remap_stacktrace",
		Description: "Rewrites the class, method and field names of a Minecraft Java stack trace between obfuscated, Mojang and Fabric intermediary names",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RemapArgs) (*mcp.CallToolResult, any, error) {
		out, err := s.remap(ctx, args)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(out), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "check_mappings",
		Description: "Parses a ProGuard or Tiny v2 mapping file and reports every error with its position",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CheckArgs) (*mcp.CallToolResult, any, error) {
		name := args.Name
		if name == "" {
			name = "mappings"
		}
		report, err := diag.CheckMappings(name, args.Mappings, args.Format)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		if !report.Valid {
			return errorResult(report.Text), nil, nil
		}
		return textResult(fmt.Sprintf("%s: valid %s mappings with %d entries", name, report.Dialect, report.Entries)), nil, nil
	})
}

func (s *Server) remap(ctx context.Context, args RemapArgs) (string, error) {
	from, err := names.ParseNamespace(args.From)
	if err != nil {
		return "", err
	}
	to, err := names.ParseNamespace(args.To)
	if err != nil {
		return "", err
	}

	logger.Logger.Debug("Remap tool call", "version", args.Version, "from", from, "to", to)
	chain, err := s.chains.Chain(ctx, args.Version, from, to, remap.Options{
		RemapFileNames: args.RemapFileNames,
		JoinAmbiguous:  args.JoinAmbiguous,
	})
	if err != nil {
		return "", err
	}

	out, summary, err := remap.Text(chain, args.Trace)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(out)
	if !strings.HasSuffix(out, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(summary.String())
	return b.String(), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
