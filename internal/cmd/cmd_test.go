// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotandev/retrace/internal/diag"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetMappings = "com.example.Widget -> a:\n    void render() -> b\n"

func init() {
	color.NoColor = true
}

func resetFlags() {
	verboseFlag, configFlag = false, ""
	remapFileFlag, remapMappingFlags, remapFormatFlag = "", nil, "auto"
	remapReverseFlag, remapFromNSFlag, remapToNSFlag = true, "obf", "mojang"
	remapFileNamesFlag, remapJoinFlag, remapSummaryFlag = false, false, "text"
	checkFormatFlag, checkJSONFlag = "auto", false
	cacheForceFlag, cacheKindFlag = false, ""
	configInitForceFlag = false
}

// testEnv isolates config and cache directories for one test.
func testEnv(t *testing.T) string {
	t.Helper()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("RETRACE_CACHE_DIR", cacheDir)
	t.Setenv("RETRACE_LOG_LEVEL", "error")
	return cacheDir
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// mojangServer serves a version manifest with one version whose client
// mappings are widgetMappings.
func mojangServer(t *testing.T) *httptest.Server {
	t.Helper()
	sum := sha1.Sum([]byte(widgetMappings))

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"versions":[{"id":"1.20.1","type":"release","url":"%s/v/1.20.1.json"}]}`, srv.URL)
	})
	mux.HandleFunc("/v/1.20.1.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"1.20.1","downloads":{"client_mappings":{"sha1":"%s","size":%d,"url":"%s/client.txt"}}}`,
			hex.EncodeToString(sum[:]), len(widgetMappings), srv.URL)
	})
	mux.HandleFunc("/client.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, widgetMappings)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	testEnv(t)
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "retrace version dev\n", out)
}

func TestRemap_LocalMapping(t *testing.T) {
	testEnv(t)
	mapping := writeFile(t, "client.txt", widgetMappings)

	out, errOut, err := run(t, "\tat a.b(SourceFile:3)\n\tat x.Y.z(Y.java:1)\n", "remap", "--mapping", mapping)
	require.NoError(t, err)
	assert.Equal(t, "\tat com.example.Widget.render(SourceFile:3)\n\tat x.Y.z(Y.java:1)\n", out)
	assert.Contains(t, errOut, "2 of 4 symbols resolved, 2 unresolved:")
}

func TestRemap_TraceFromFile(t *testing.T) {
	testEnv(t)
	mapping := writeFile(t, "client.txt", widgetMappings)
	trace := writeFile(t, "crash.txt", "\tat a.b(SourceFile:3)\n")

	out, errOut, err := run(t, "", "remap", "-m", mapping, "--file", trace, "--summary", "none")
	require.NoError(t, err)
	assert.Equal(t, "\tat com.example.Widget.render(SourceFile:3)\n", out)
	assert.Empty(t, errOut)
}

func TestRemap_JSONSummary(t *testing.T) {
	testEnv(t)
	mapping := writeFile(t, "client.txt", widgetMappings)

	_, errOut, err := run(t, "\tat a.b(SourceFile:3)\n", "remap", "--mapping", mapping, "--summary", "json")
	require.NoError(t, err)

	var summary remap.Summary
	require.NoError(t, json.Unmarshal([]byte(errOut), &summary))
	assert.Equal(t, 2, summary.ResolvedCount)
	assert.Equal(t, 0, summary.UnresolvedCount)
}

func TestRemap_TraceParseError(t *testing.T) {
	testEnv(t)
	mapping := writeFile(t, "client.txt", widgetMappings)

	out, errOut, err := run(t, "\tat broken\n", "remap", "--mapping", mapping)
	assert.True(t, IsReported(err))
	assert.Empty(t, out)
	assert.Contains(t, errOut, "error: 1:")
	assert.Contains(t, errOut, "1 | \tat broken")
	assert.Contains(t, errOut, "^")
}

func TestRemap_BrokenMappingFiles(t *testing.T) {
	testEnv(t)
	good := writeFile(t, "good.txt", widgetMappings)
	bad := writeFile(t, "bad.txt", "    int f -> g\n")

	_, errOut, err := run(t, "\tat a.b(SourceFile:3)\n", "remap", "-m", good, "-m", bad)
	assert.True(t, IsReported(err))
	assert.Contains(t, errOut, "error: "+bad+":1:")
	assert.Contains(t, errOut, "declared before any class")
}

func TestRemap_Args(t *testing.T) {
	testEnv(t)

	_, _, err := run(t, "", "remap")
	assert.Error(t, err)

	_, _, err = run(t, "", "remap", "1.20.1", "obf", "srg")
	assert.Error(t, err)

	mapping := writeFile(t, "client.txt", widgetMappings)
	_, _, err = run(t, "", "remap", "--mapping", mapping, "--summary", "yaml")
	assert.Error(t, err)
}

func TestRemap_Downloads(t *testing.T) {
	cacheDir := testEnv(t)
	srv := mojangServer(t)
	t.Setenv("RETRACE_MANIFEST_URL", srv.URL+"/manifest.json")

	out, _, err := run(t, "\tat a.b(SourceFile:3)\n", "remap", "1.20.1", "obf", "mojang")
	require.NoError(t, err)
	assert.Equal(t, "\tat com.example.Widget.render(SourceFile:3)\n", out)

	out, _, err = run(t, "", "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache directory: "+cacheDir)
	assert.Contains(t, out, "Files cached: 1")

	out, _, err = run(t, "", "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "1.20.1")
	assert.Contains(t, out, "mojang")

	out, _, err = run(t, "n\n", "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, _, err = run(t, "", "cache", "clear", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 file(s)")

	out, _, err = run(t, "", "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached mappings.")
}

func TestCheck(t *testing.T) {
	testEnv(t)
	good := writeFile(t, "client.txt", widgetMappings)
	bad := writeFile(t, "bad.tiny", "tiny\t2\t0\tofficial\n")

	out, _, err := run(t, "", "check", good)
	require.NoError(t, err)
	assert.Equal(t, good+": valid proguard mappings, 2 entries\n", out)

	out, errOut, err := run(t, "", "check", good, bad)
	assert.True(t, IsReported(err))
	assert.Contains(t, out, bad+": 1 error(s)")
	assert.Contains(t, errOut, "error: "+bad+":1:")

	_, _, err = run(t, "", "check", "--format", "srg", good)
	assert.Error(t, err)
}

func TestCheck_JSON(t *testing.T) {
	testEnv(t)
	good := writeFile(t, "client.txt", widgetMappings)
	bad := writeFile(t, "bad.tiny", "tiny\t2\t0\tofficial\n")

	out, _, err := run(t, "", "check", "--json", good, bad)
	assert.True(t, IsReported(err))

	var reports []diag.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.True(t, reports[0].Valid)
	assert.Equal(t, 2, reports[0].Entries)
	assert.False(t, reports[1].Valid)
	assert.Equal(t, "tiny", reports[1].Dialect)
}

func TestConfig(t *testing.T) {
	testEnv(t)
	t.Setenv("RETRACE_DAEMON_TOKEN", "secret")

	out, _, err := run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"daemon_auth_token": "********"`)
	assert.NotContains(t, out, "secret")

	path := filepath.Join(t.TempDir(), "retrace.json")
	out, _, err = run(t, "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, _, err = run(t, "", "config", "init", "--config", path)
	assert.Error(t, err)

	out, _, err = run(t, "", "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestConfig_InvalidEnv(t *testing.T) {
	testEnv(t)
	t.Setenv("RETRACE_DOWNLOAD_ATTEMPTS", "many")

	_, _, err := run(t, "", "version")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, FailureExitCode, ExitCode(ErrReported))
	assert.Equal(t, InterruptExitCode, ExitCode(fmt.Errorf("remap: %w", context.Canceled)))
}
