package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the progressctl configuration.
type Settings struct {
	ServerURL string   `mapstructure:"server_url"` // progress server base URL
	StatePath string   `mapstructure:"state_path"` // SQLite file holding local state
	Namespace string   `mapstructure:"namespace"`  // feature namespace for local keys
	Token     string   `mapstructure:"token"`      // bearer token saved by login
	Units     []string `mapstructure:"units"`      // trackable units, denominator of the percentage
	LogLevel  string   `mapstructure:"log_level"`
}

// configDir is where progressctl keeps its state and saved config.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".progressctl"
	}
	return filepath.Join(home, ".progressctl")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("progressctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(configDir())

	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("state_path", filepath.Join(configDir(), "state.db"))
	v.SetDefault("namespace", "course")
	v.SetDefault("token", "")
	v.SetDefault("units", []string{})
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("PROGRESSCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings reads progressctl.yaml from the working directory or
// ~/.progressctl, then PROGRESSCTL_* environment variables.
func LoadSettings() (*Settings, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	s.ServerURL = strings.TrimRight(s.ServerURL, "/")
	if s.ServerURL == "" {
		return nil, errors.New("server_url is empty")
	}
	return &s, nil
}

// SaveToken stores token in the config file in use, or in
// ~/.progressctl/progressctl.yaml when there is none yet.
func SaveToken(token string) (string, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("error loading config file: %w", err)
		}
	}
	v.Set("token", token)

	path := v.ConfigFileUsed()
	if path == "" {
		if err := os.MkdirAll(configDir(), 0o700); err != nil {
			return "", fmt.Errorf("create config dir: %w", err)
		}
		path = filepath.Join(configDir(), "progressctl.yaml")
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
