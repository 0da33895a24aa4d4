package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("store:\n  driver: toml\n  path: %s\n", filepath.Join(dir, "rooms.toml"))
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	return file
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoomsCommands(t *testing.T) {
	file := writeConfig(t)

	out, err := run(t, "--config", file, "rooms", "add", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "ALPHA created\n", out)

	out, err = run(t, "--config", file, "rooms", "add", "ALPHA")
	require.NoError(t, err)
	assert.Equal(t, "ALPHA already exists\n", out)

	_, err = run(t, "--config", file, "rooms", "add", "beta")
	require.NoError(t, err)

	out, err = run(t, "--config", file, "rooms", "list")
	require.NoError(t, err)
	assert.Equal(t, "ALPHA\nBETA\n", out)

	out, err = run(t, "--config", file, "rooms", "remove", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "ALPHA removed\n", out)

	_, err = run(t, "--config", file, "rooms", "remove", "alpha")
	assert.Error(t, err)

	out, err = run(t, "--config", file, "rooms", "list")
	require.NoError(t, err)
	assert.Equal(t, "BETA\n", out)
}
