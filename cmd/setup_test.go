package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateServerConfig(t *testing.T) {
	config := generateServerConfig()

	servers, ok := config["mcpServers"].(map[string]any)
	require.True(t, ok)
	entry, ok := servers["synapse-go"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "synapse-go", entry["command"])
	assert.Equal(t, []string{"serve", "--watch"}, entry["args"])
}

func TestWriteConfigJSON(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nested", "mcp.json")

	require.NoError(t, writeConfig(configPath, generateServerConfig(), "json"))

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(content, &parsed))
	assert.Contains(t, parsed, "mcpServers")
}

func TestWriteConfigText(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mcp.txt")

	require.NoError(t, writeConfig(configPath, generateServerConfig(), "text"))

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "mcpServers")
	assert.Contains(t, string(content), "# MCP Configuration for Synapse")
}

func TestGetClientConfigDir(t *testing.T) {
	tests := []struct {
		client string
		want   string
	}{
		{client: "qwen", want: ".qwen"},
		{client: "claude", want: ".claude"},
		{client: "cursor", want: ".cursor"},
		{client: "other", want: ".qwen"},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			assert.Equal(t, tt.want, getClientConfigDir(tt.client))
		})
	}
}

func TestGlobalsResolve(t *testing.T) {
	t.Run("default db path under project", func(t *testing.T) {
		g := &Globals{ProjectPath: "/work/proj"}
		project, db, err := g.resolve()
		require.NoError(t, err)
		assert.Equal(t, "/work/proj", project)
		assert.Equal(t, filepath.Join("/work/proj", ".synapse", "graph.sqlite"), db)
	})

	t.Run("explicit db path wins", func(t *testing.T) {
		g := &Globals{ProjectPath: "/work/proj", DBPath: "/elsewhere/g.sqlite"}
		_, db, err := g.resolve()
		require.NoError(t, err)
		assert.Equal(t, "/elsewhere/g.sqlite", db)
	})
}
