package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "whatsrelay "+Version)
	assert.Contains(t, out.String(), "Git Commit: "+GitCommit)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "migrate", "cleanup", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, name := range []string{"up", "down", "version"} {
		cmd, _, err := root.Find([]string{"migrate", name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "api:\n  apiKey: test-api-key-0123456789\n" +
		"database:\n  path: " + filepath.Join(dir, "relay.db") + "\n" +
		"logging:\n  dir: " + filepath.Join(dir, "logs") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMigrateAndCleanupCommands(t *testing.T) {
	path := writeTestConfig(t, t.TempDir())
	t.Cleanup(func() { cfgFile = "" })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)

	root.SetArgs([]string{"--config", path, "migrate", "up"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "dirty: false")

	out.Reset()
	root.SetArgs([]string{"--config", path, "cleanup"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "deleted 0 message mappings and 0 groups")
}

func TestMigrateDownRejectsBadSteps(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "down", "zero"})
	assert.Error(t, root.Execute())
}
