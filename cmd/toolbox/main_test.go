package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-toolbox/pkg/platform"
)

const validTools = `
sources:
  my-sqlite:
    kind: sqlite
    path: /tmp/hotels.db
tools:
  get-hotel:
    kind: sqlite-sql
    source: my-sqlite
    description: Get a hotel by its ID.
    parameters:
      - name: hotel_id
        type: integer
        description: The ID of the hotel.
    statement: SELECT * FROM hotels WHERE id = ?
toolsets:
  readers: [get-hotel]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "toolbox version dev\n", out)
}

func TestValidateCommand(t *testing.T) {
	path := writeFile(t, "tools.yaml", validTools)

	out, err := execute(t, "validate", "--tools-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 sources, 1 tools, 1 toolsets OK")
}

func TestValidateCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "undefined source",
			content: strings.Replace(validTools, "source: my-sqlite", "source: nope", 1),
			want:    "nope",
		},
		{
			name:    "missing placeholder",
			content: strings.Replace(validTools, "WHERE id = ?", "WHERE id = 1", 1),
			want:    "hotel_id",
		},
		{
			name:    "bad transport",
			content: validTools + "server:\n  transport: sse\n",
			want:    "server.transport",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "validate", "--tools-file", writeFile(t, "tools.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", "--tools-file", "/nonexistent/tools.yaml")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "tool", "get-hotel")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"tool":"get-hotel"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := serveCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "7000", "--transport", "stdio"}))

	cfg, err := platform.ParseConfig([]byte("server:\n  address: 0.0.0.0\n  port: 6000\n"), platform.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, applyFlagOverrides(cfg, cmd.Flags()))

	assert.Equal(t, "0.0.0.0", cfg.Server.Address, "unset flags keep the tools file value")
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, platform.TransportStdio, cfg.Server.Transport)
}

func TestApplyFlagOverrides_Invalid(t *testing.T) {
	cmd := serveCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--transport", "sse"}))

	cfg, err := platform.ParseConfig(nil, platform.FormatYAML)
	require.NoError(t, err)
	assert.Error(t, applyFlagOverrides(cfg, cmd.Flags()))
}
