package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, original)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestDefaultHasSaneFallbacks(t *testing.T) {
	cfg := Default()
	require.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	require.Equal(t, "https://github.com", cfg.GitHub.WebURL)
	require.Equal(t, DefaultClientID, cfg.GitHub.ClientID)
	require.Equal(t, "", cfg.GitHub.Token)
	require.True(t, cfg.Sync.Enabled)
	require.True(t, cfg.Sync.SyncOnStartup)
	require.Equal(t, 60, cfg.Sync.IntervalSecs)
}

func TestLoadFromEnvPrefersMaguffinToken(t *testing.T) {
	withEnv(t, "MAGUFFIN_GITHUB_TOKEN", "maguffin-token")
	withEnv(t, "GITHUB_TOKEN", "generic-token")

	cfg := Default()
	loadFromEnv(&cfg)
	require.Equal(t, "maguffin-token", cfg.GitHub.Token)
}

func TestLoadFromEnvFallsBackToGitHubToken(t *testing.T) {
	os.Unsetenv("MAGUFFIN_GITHUB_TOKEN")
	withEnv(t, "GITHUB_TOKEN", "generic-token")

	cfg := Default()
	loadFromEnv(&cfg)
	require.Equal(t, "generic-token", cfg.GitHub.Token)
}

func TestLoadFromEnvOverridesClientID(t *testing.T) {
	withEnv(t, "MAGUFFIN_GITHUB_CLIENT_ID", "custom-client-id")

	cfg := Default()
	loadFromEnv(&cfg)
	require.Equal(t, "custom-client-id", cfg.GitHub.ClientID)
}

func TestLoadWithNoConfigFileKeepsDefaults(t *testing.T) {
	os.Unsetenv("MAGUFFIN_GITHUB_TOKEN")
	os.Unsetenv("GITHUB_TOKEN")
	os.Unsetenv("MAGUFFIN_GITHUB_CLIENT_ID")

	cfg, loaded, err := Load([]string{t.TempDir()})
	require.NoError(t, err)
	require.False(t, loaded)
	require.Equal(t, Default(), cfg)
}
