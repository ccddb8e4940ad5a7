// Package config loads quicknotes settings from an optional config file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/store"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeySupabaseURL   = "supabase.url"
	KeySupabaseKey   = "supabase.key"
	KeySupabaseTable = "supabase.table"
	KeyDataDir       = "data_dir"
	KeyStorageKey    = "storage_key"
	KeyServerURL     = "server_url"
	KeyLogLevel      = "log_level"
	KeyHTTPPort      = "http.port"
	KeyCORSOrigins   = "http.cors_origins"
	KeyUITheme       = "ui.theme"
	KeyUIView        = "ui.view"
)

const envPrefix = "QUICKNOTES"

type Config struct {
	Supabase   SupabaseConfig
	DataDir    string
	StorageKey string
	ServerURL  string
	LogLevel   string
	HTTP       HTTPConfig
	UI         UIConfig

	// File is the config file that was read, if any.
	File string
}

type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
}

type HTTPConfig struct {
	Port        int
	CORSOrigins []string
}

type UIConfig struct {
	Theme string
	View  string
}

// RemoteConfigured reports whether both Supabase settings are present, which
// selects the remote backend.
func (c Config) RemoteConfigured() bool {
	return strings.TrimSpace(c.Supabase.URL) != "" && strings.TrimSpace(c.Supabase.Key) != ""
}

// Loader wraps a viper instance with the quicknotes defaults and environment
// bindings.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault(KeySupabaseTable, store.DefaultTableName)
	v.SetDefault(KeyStorageKey, store.DefaultStorageKey)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyHTTPPort, constants.DefaultPort)
	v.SetDefault(KeyCORSOrigins, constants.DefaultCORSOrigin)
	v.SetDefault(KeyUITheme, "dark")
	v.SetDefault(KeyUIView, "grid")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by hosting platforms and the Supabase tooling.
	v.BindEnv(KeySupabaseURL, envPrefix+"_SUPABASE_URL", "SUPABASE_URL")
	v.BindEnv(KeySupabaseKey, envPrefix+"_SUPABASE_KEY", "SUPABASE_KEY")
	v.BindEnv(KeyHTTPPort, envPrefix+"_HTTP_PORT", "PORT")

	return &Loader{v: v}
}

// BindFlag lets flag override key when the flag was set on the command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %s", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
	}
	return nil
}

// Load reads configFile, or searches for quicknotes.yaml in the working
// directory and $HOME/.config/quicknotes when configFile is empty. A missing
// file is not an error unless it was named explicitly.
func (l *Loader) Load(configFile string) (Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(constants.AppName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", constants.AppName))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		Supabase: SupabaseConfig{
			URL:   l.v.GetString(KeySupabaseURL),
			Key:   l.v.GetString(KeySupabaseKey),
			Table: l.v.GetString(KeySupabaseTable),
		},
		DataDir:    l.v.GetString(KeyDataDir),
		StorageKey: l.v.GetString(KeyStorageKey),
		ServerURL:  l.v.GetString(KeyServerURL),
		LogLevel:   l.v.GetString(KeyLogLevel),
		HTTP: HTTPConfig{
			Port:        l.v.GetInt(KeyHTTPPort),
			CORSOrigins: splitList(l.v.GetStringSlice(KeyCORSOrigins)),
		},
		UI: UIConfig{
			Theme: l.v.GetString(KeyUITheme),
			View:  l.v.GetString(KeyUIView),
		},
		File: l.v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	switch c.UI.View {
	case "grid", "list":
	default:
		return fmt.Errorf("invalid ui view %q: must be grid or list", c.UI.View)
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("invalid ui theme %q: must be dark or light", c.UI.Theme)
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated environment values.
func splitList(values []string) []string {
	out := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
