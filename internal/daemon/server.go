// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package daemon serves trace remapping over JSON-RPC 2.0.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dotandev/retrace/internal/diag"
	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/logger"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/dotandev/retrace/internal/telemetry"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"go.opentelemetry.io/otel/attribute"
)

// ServiceName prefixes every RPC method, as in "Retrace.Remap".
const ServiceName = "Retrace"

// ChainSource builds remapping chains. *provider.Provider implements it.
type ChainSource interface {
	Chain(ctx context.Context, version string, from, to names.Namespace, opts remap.Options) (remap.Chain, error)
}

// Server represents the JSON-RPC daemon server
type Server struct {
	chains    ChainSource
	authToken string
	defaults  remap.Options
}

// Config holds daemon configuration
type Config struct {
	Port      string
	AuthToken string
	// Defaults apply when a request leaves an option unset.
	Defaults remap.Options
}

// RemapRequest represents the Retrace.Remap RPC request
type RemapRequest struct {
	Version        string `json:"version"`
	From           string `json:"from"`
	To             string `json:"to"`
	Trace          string `json:"trace"`
	RemapFileNames *bool  `json:"remap_file_names,omitempty"`
	JoinAmbiguous  *bool  `json:"join_ambiguous,omitempty"`
}

// RemapResponse represents the Retrace.Remap RPC response
type RemapResponse struct {
	Trace   string        `json:"trace"`
	Summary remap.Summary `json:"summary"`
}

// CheckRequest represents the Retrace.Check RPC request
type CheckRequest struct {
	Name     string `json:"name"`
	Mappings string `json:"mappings"`
	Format   string `json:"format,omitempty"`
}

// CheckResponse represents the Retrace.Check RPC response
type CheckResponse = diag.Report

// NewServer creates a new JSON-RPC server
func NewServer(chains ChainSource, config Config) *Server {
	return &Server{
		chains:    chains,
		authToken: config.AuthToken,
		defaults:  config.Defaults,
	}
}

// authenticate validates the authorization token
func (s *Server) authenticate(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	if strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		return token == s.authToken
	}

	return auth == s.authToken
}

func (s *Server) options(req *RemapRequest) remap.Options {
	opts := s.defaults
	if req.RemapFileNames != nil {
		opts.RemapFileNames = *req.RemapFileNames
	}
	if req.JoinAmbiguous != nil {
		opts.JoinAmbiguous = *req.JoinAmbiguous
	}
	return opts
}

// Remap handles Retrace.Remap RPC calls
func (s *Server) Remap(r *http.Request, req *RemapRequest, resp *RemapResponse) error {
	if !s.authenticate(r) {
		return errors.ErrUnauthorized
	}

	ctx := r.Context()
	tracer := telemetry.GetTracer()
	ctx, span := tracer.Start(ctx, "remap_trace")
	span.SetAttributes(
		attribute.String("version", req.Version),
		attribute.String("from", req.From),
		attribute.String("to", req.To),
	)
	defer span.End()

	logger.Logger.Info("Processing remap RPC", "version", req.Version, "from", req.From, "to", req.To)

	from, err := names.ParseNamespace(req.From)
	if err != nil {
		return err
	}
	to, err := names.ParseNamespace(req.To)
	if err != nil {
		return err
	}

	chain, err := s.chains.Chain(ctx, req.Version, from, to, s.options(req))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load mappings: %w", err)
	}

	out, summary, err := remap.Text(chain, req.Trace)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("invalid stack trace: %w", err)
	}
	span.SetAttributes(
		attribute.Int("resolved", summary.ResolvedCount),
		attribute.Int("unresolved", summary.UnresolvedCount),
	)

	*resp = RemapResponse{Trace: out, Summary: summary}
	return nil
}

// Check handles Retrace.Check RPC calls. Problems in the mapping text are
// reported in the response, not as an RPC error.
func (s *Server) Check(r *http.Request, req *CheckRequest, resp *CheckResponse) error {
	if !s.authenticate(r) {
		return errors.ErrUnauthorized
	}

	name := req.Name
	if name == "" {
		name = "mappings"
	}
	logger.Logger.Info("Processing check RPC", "name", name, "format", req.Format)

	report, err := diag.CheckMappings(name, req.Mappings, req.Format)
	if err != nil {
		return err
	}
	*resp = *report
	return nil
}

// Handler returns the HTTP routes: JSON-RPC at /rpc and a health check.
func (s *Server) Handler() (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	if err := server.RegisterService(s, ServiceName); err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", server)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux, nil
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port string) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}
	logger.Logger.Info("Starting JSON-RPC server", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Logger.Error("Server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Logger.Info("Shutting down JSON-RPC server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
