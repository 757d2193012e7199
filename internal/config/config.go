package config

import (
	"os"

	"emperror.dev/errors"
	"github.com/spf13/viper"
)

// GitHubConfig configures the GitHub provider binding: API endpoints, the
// OAuth client id used by the device-flow, and (once authenticated) the
// bearer token.
type GitHubConfig struct {
	Token    string
	APIURL   string
	WebURL   string
	ClientID string
}

// SyncConfig mirrors syncer.Config; it is kept here rather than imported
// from internal/syncer so config stays a leaf package with no engine deps.
type SyncConfig struct {
	IntervalSecs  int
	Enabled       bool
	SyncOnStartup bool
}

// Config is the root configuration object for the engine.
type Config struct {
	GitHub GitHubConfig
	Sync   SyncConfig
}

// DefaultClientID is used when neither a config file nor
// MAGUFFIN_GITHUB_CLIENT_ID supplies one. It identifies the engine's OAuth
// app registration.
const DefaultClientID = "Iv1.maguffin-stackengine"

func Default() Config {
	return Config{
		GitHub: GitHubConfig{
			APIURL:   "https://api.github.com",
			WebURL:   "https://github.com",
			ClientID: DefaultClientID,
		},
		Sync: SyncConfig{
			IntervalSecs:  60,
			Enabled:       true,
			SyncOnStartup: true,
		},
	}
}

// Load initializes the configuration values, starting from Default and
// layering a config file (if any) and then environment overrides on top.
// It may optionally be called with a list of additional paths to check for
// the config file. Returns the resolved configuration, whether a config
// file was found, and an error if one occurred while reading it.
func Load(paths []string) (Config, bool, error) {
	cfg := Default()
	loaded, err := loadFromFile(&cfg, paths)
	loadFromEnv(&cfg)
	return cfg, loaded, err
}

func loadFromFile(cfg *Config, paths []string) (bool, error) {
	v := viper.New()

	// Viper supports json, toml, yaml, and more
	// (https://github.com/spf13/viper#reading-config-files).
	v.SetConfigName("config")

	// Reasonable places to look for config files.
	v.AddConfigPath("$XDG_CONFIG_HOME/maguffin")
	v.AddConfigPath("$HOME/.config/maguffin")
	v.AddConfigPath("$HOME/.maguffin")
	v.AddConfigPath("$MAGUFFIN_HOME")
	// Add additional custom paths.
	// The primary use case for this is adding repository-specific
	// configuration (e.g., $REPO/.git/maguffin/config.json).
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return false, nil
		}
		return false, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return true, errors.Wrap(err, "failed to read stackengine config")
	}

	return true, nil
}

func loadFromEnv(cfg *Config) {
	if token := os.Getenv("MAGUFFIN_GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	} else if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if clientID := os.Getenv("MAGUFFIN_GITHUB_CLIENT_ID"); clientID != "" {
		cfg.GitHub.ClientID = clientID
	}
}
