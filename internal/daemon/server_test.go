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

package daemon

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/hierarchy"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/dotandev/retrace/internal/resolve"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetMappings = "com.example.Widget -> a:\n    void render() -> b\n    void draw(int) -> c\n    void paint(long) -> c\n"

type staticChains struct {
	t    *testing.T
	last remap.Options
}

func (s *staticChains) Chain(ctx context.Context, version string, from, to names.Namespace, opts remap.Options) (remap.Chain, error) {
	if version != "1.20.1" {
		return nil, rerrors.WrapVersionNotFound(version)
	}
	s.last = opts
	table, err := mappings.Parse(widgetMappings, mappings.ParseOptions{Reverse: true, From: from, To: to})
	require.NoError(s.t, err)
	g, err := hierarchy.Build(table)
	require.NoError(s.t, err)
	return remap.Chain{remap.New(resolve.New(g), opts)}, nil
}

func newTestServer(t *testing.T, token string) (*Server, *staticChains) {
	chains := &staticChains{t: t}
	return NewServer(chains, Config{AuthToken: token, Defaults: remap.Options{JoinAmbiguous: true}}), chains
}

func TestServer_Remap(t *testing.T) {
	server, chains := newTestServer(t, "")
	req := httptest.NewRequest("POST", "/rpc", nil)

	var resp RemapResponse
	err := server.Remap(req, &RemapRequest{
		Version: "1.20.1",
		From:    "obf",
		To:      "mojang",
		Trace:   "\tat a.b(SourceFile:1)\n\tat a.c(SourceFile:2)\n",
	}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "\tat com.example.Widget.render(SourceFile:1)\n\tat com.example.Widget.draw/paint(SourceFile:2)\n", resp.Trace)
	assert.Equal(t, 3, resp.Summary.ResolvedCount)
	assert.Equal(t, 1, resp.Summary.UnresolvedCount)
	assert.True(t, chains.last.JoinAmbiguous)

	off := false
	err = server.Remap(req, &RemapRequest{Version: "1.20.1", From: "obf", To: "mojang", Trace: "\tat a.c(SourceFile:2)\n", JoinAmbiguous: &off}, &resp)
	require.NoError(t, err)
	assert.False(t, chains.last.JoinAmbiguous)
}

func TestServer_RemapErrors(t *testing.T) {
	server, _ := newTestServer(t, "")
	req := httptest.NewRequest("POST", "/rpc", nil)
	var resp RemapResponse

	err := server.Remap(req, &RemapRequest{Version: "1.20.1", From: "srg", To: "mojang"}, &resp)
	assert.True(t, errors.Is(err, rerrors.ErrUnknownNamespace))

	err = server.Remap(req, &RemapRequest{Version: "0.1", From: "obf", To: "mojang"}, &resp)
	assert.True(t, errors.Is(err, rerrors.ErrVersionNotFound))

	err = server.Remap(req, &RemapRequest{Version: "1.20.1", From: "obf", To: "mojang", Trace: "\tat nothing\n"}, &resp)
	assert.True(t, errors.Is(err, rerrors.ErrParse))
}

func TestServer_Check(t *testing.T) {
	server, _ := newTestServer(t, "")
	req := httptest.NewRequest("POST", "/rpc", nil)

	var resp CheckResponse
	require.NoError(t, server.Check(req, &CheckRequest{Name: "client.txt", Mappings: widgetMappings}, &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, "proguard", resp.Dialect)
	assert.Equal(t, 4, resp.Entries)

	require.NoError(t, server.Check(req, &CheckRequest{Name: "bad.txt", Mappings: "a -> b:\n    void x( -> y\n"}, &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, 1, resp.ErrorCount)
	assert.Contains(t, resp.Text, "error: bad.txt:2:")
	assert.Contains(t, resp.Text, "2 |     void x( -> y")
	assert.NotContains(t, resp.Text, "\x1b[")

	err := server.Check(req, &CheckRequest{Mappings: "", Format: "srg"}, &resp)
	assert.True(t, errors.Is(err, rerrors.ErrValidation))
}

func TestServer_Authentication(t *testing.T) {
	server, _ := newTestServer(t, "secret123")

	req := httptest.NewRequest("POST", "/rpc", nil)
	assert.False(t, server.authenticate(req))

	req.Header.Set("Authorization", "Bearer secret123")
	assert.True(t, server.authenticate(req))

	req.Header.Set("Authorization", "secret123")
	assert.True(t, server.authenticate(req))

	req.Header.Set("Authorization", "wrong-token")
	assert.False(t, server.authenticate(req))

	var resp CheckResponse
	err := server.Check(req, &CheckRequest{Mappings: widgetMappings}, &resp)
	assert.True(t, errors.Is(err, rerrors.ErrUnauthorized))
}

func TestServer_JSONRPC(t *testing.T) {
	server, _ := newTestServer(t, "secret123")
	handler, err := server.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	call := func(token, method string, args, reply interface{}) error {
		body, err := json2.EncodeClientRequest(method, args)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return json2.DecodeClientResponse(resp.Body, reply)
	}

	var reply RemapResponse
	err = call("secret123", "Retrace.Remap", &RemapRequest{Version: "1.20.1", From: "obf", To: "mojang", Trace: "\tat a.b(SourceFile:1)\n"}, &reply)
	require.NoError(t, err)
	assert.Equal(t, "\tat com.example.Widget.render(SourceFile:1)\n", reply.Trace)

	err = call("", "Retrace.Remap", &RemapRequest{Version: "1.20.1"}, &reply)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StartStop(t *testing.T) {
	server, _ := newTestServer(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, server.Start(ctx, "0"))
}
