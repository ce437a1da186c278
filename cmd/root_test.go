package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootStoresAppInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))
	configFile = path
	t.Cleanup(func() { configFile = "" })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, rootCmd.PersistentPreRunE(cmd, nil))

	name, version, file := getAppInfoFromContext(cmd)
	assert.Equal(t, appName, name)
	assert.Equal(t, appVersion, version)
	assert.Equal(t, path, file)

	cfg, err := getConfigFromContext(cmd)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "error", getLoggerFromContext(cmd).GetLevel().String())
}

func TestAppInfoWithoutConfigFile(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, _, file := getAppInfoFromContext(cmd)
	assert.Equal(t, "search path", file)

	_, err := getConfigFromContext(cmd)
	assert.Error(t, err)
}
