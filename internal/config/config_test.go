package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("{}\n"), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.ServicePort)
	require.True(t, cfg.SchedulerEnabled)
	require.Equal(t, 60*time.Second, cfg.SchedulerPollInterval)
	require.Equal(t, 10, cfg.MaxConcurrentTasks)
	require.Equal(t, 3600*time.Second, cfg.TaskTimeout)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(
		"service_port: 9090\nscheduler_poll_interval: 15\nlog_format: json\n",
	), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.ServicePort)
	require.Equal(t, 15*time.Second, cfg.SchedulerPollInterval)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_EnvVarOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("service_port: 9090\n"), 0644))

	t.Setenv("ENGINE_SERVICE_PORT", "7070")

	cfg, err := Load(configFile)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.ServicePort)
}

func TestLoad_MissingExplicitConfigFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}
