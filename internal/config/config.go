// Package config loads tenantporter settings and manages connection profiles.
//
// Settings come from, in increasing precedence: built-in defaults, the config
// file ($HOME/.tenantporter/config.yaml or --config), a ./.env file, the
// TENANTPORTER_* environment, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TENANTPORTER"

// DirName is the per-user directory under $HOME.
const DirName = ".tenantporter"

// Config holds resolved settings.
type Config struct {
	Host     string
	Realm    string
	Username string
	Password string

	ServiceAccountID        string
	ServiceAccountJWKFile   string
	ServiceAccountJWKSecret string

	LoginClientID    string
	LoginRedirectURI string
	Browser          bool
	Insecure         bool

	Retry          RetryConfig
	RequestTimeout time.Duration

	OutputDirectory string
	ConnectionsFile string
	MasterKeyFile   string

	// ConfigFile is the file actually read, empty when none was found.
	ConfigFile string
}

// RetryConfig controls HTTP retries.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// LoadOptions tune Load.
type LoadOptions struct {
	// ConfigFile overrides config file discovery.
	ConfigFile string
	// EnvFile is loaded into the environment when present. Defaults to ".env".
	EnvFile string
	// HomeDir overrides the user's home directory.
	HomeDir string
	// Flags are bound by name through FlagKeys.
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"host":            "host",
	"realm":           "realm",
	"username":        "username",
	"password":        "password",
	"sa-id":           "service-account.id",
	"sa-jwk-file":     "service-account.jwk-file",
	"sa-jwk-secret":   "service-account.jwk-secret",
	"login-client-id": "login.client-id",
	"browser":         "login.browser",
	"insecure":        "insecure",
	"directory":       "output.directory",
}

// Load resolves the configuration.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	home := opts.HomeDir
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	v := viper.New()
	ApplyDefaults(v, home)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		if home != "" {
			v.AddConfigPath(filepath.Join(home, DirName))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Host:                    v.GetString("host"),
		Realm:                   v.GetString("realm"),
		Username:                v.GetString("username"),
		Password:                v.GetString("password"),
		ServiceAccountID:        v.GetString("service-account.id"),
		ServiceAccountJWKFile:   v.GetString("service-account.jwk-file"),
		ServiceAccountJWKSecret: v.GetString("service-account.jwk-secret"),
		LoginClientID:           v.GetString("login.client-id"),
		LoginRedirectURI:        v.GetString("login.redirect-uri"),
		Browser:                 v.GetBool("login.browser"),
		Insecure:                v.GetBool("insecure"),
		Retry: RetryConfig{
			MaxAttempts:  v.GetInt("retry.max-attempts"),
			InitialDelay: v.GetDuration("retry.initial-delay"),
			MaxDelay:     v.GetDuration("retry.max-delay"),
		},
		RequestTimeout:  v.GetDuration("timeouts.request"),
		OutputDirectory: v.GetString("output.directory"),
		ConnectionsFile: v.GetString("connections-file"),
		MasterKeyFile:   v.GetString("master-key-file"),
		ConfigFile:      v.ConfigFileUsed(),
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return cfg, nil
}
