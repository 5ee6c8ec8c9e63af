package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazrean/renketsu/internal/renketsu"
)

const validFacts = `units:
  - name: Logger
    sourceLocation: {file: src/logger.ts, line: 3}
    declaredContracts:
      - rawText: LoggerInterface
  - name: ApiService
    sourceLocation: {file: src/api.ts, line: 7}
    declaredContracts:
      - rawText: ApiInterface
    constructorParameters:
      - name: logger
        contractRawText: LoggerInterface
`

const invalidFacts = `- name: Foo
  constructorParameters:
    - name: missing
      contractRawText: MissingService
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	return path
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestRun_Plan(t *testing.T) {
	dir := t.TempDir()
	factsPath := writeFile(t, dir, "facts.yaml", validFacts)
	settingsPath := writeFile(t, dir, "renketsu.yaml", "tie_break: primary\n")

	var buf bytes.Buffer
	err := run([]string{"plan", "--config", settingsPath, "--format", "json", "--facts", factsPath}, &buf)
	require.NoError(t, err)

	var doc struct {
		Nodes []renketsu.TreeNode `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "Logger", doc.Nodes[0].ImplementationName)
	assert.Equal(t, []string{"Logger"}, doc.Nodes[1].ResolvedImplementations)
}

func TestRun_ValidateInvalid(t *testing.T) {
	dir := t.TempDir()
	factsPath := writeFile(t, dir, "facts.yaml", invalidFacts)
	settingsPath := writeFile(t, dir, "renketsu.yaml", "")

	var buf bytes.Buffer
	err := run([]string{"validate", "-c", settingsPath, "-i", factsPath}, &buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, renketsu.ErrInvalidGraph))
	assert.Contains(t, buf.String(), "Foo -> MissingService")
	assert.Contains(t, buf.String(), "isValid: false")
}

func TestRun_Resolve(t *testing.T) {
	dir := t.TempDir()
	factsPath := writeFile(t, dir, "facts.yaml", validFacts)
	settingsPath := writeFile(t, dir, "renketsu.yaml", "")

	var buf bytes.Buffer
	require.NoError(t, run([]string{"resolve", "LoggerInterface", "-c", settingsPath, "-i", factsPath}, &buf))
	assert.Contains(t, buf.String(), "implementationName: Logger")
	assert.Contains(t, buf.String(), "step: exact")

	buf.Reset()
	err := run([]string{"resolve", "Missing", "-c", settingsPath, "-i", factsPath}, &buf)
	assert.True(t, errors.Is(err, renketsu.ErrNotFound))
}

func TestRun_Scan(t *testing.T) {
	dir := t.TempDir()
	factsPath := writeFile(t, dir, "facts.yaml", validFacts)
	settingsPath := writeFile(t, dir, "renketsu.yaml", "")

	var buf bytes.Buffer
	require.NoError(t, run([]string{"scan", "-c", settingsPath, "-i", factsPath}, &buf))
	assert.Contains(t, buf.String(), "registrations:")
	assert.Contains(t, buf.String(), "strategy: interface")
}

func TestRun_NoInputs(t *testing.T) {
	dir := t.TempDir()
	settingsPath := writeFile(t, dir, "renketsu.yaml", "")

	var buf bytes.Buffer
	err := run([]string{"scan", "-c", settingsPath}, &buf)
	assert.ErrorContains(t, err, "no inputs specified")
}
