package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nvinuesa/tenantporter/internal/config"
	"github.com/nvinuesa/tenantporter/internal/ops"
	"github.com/nvinuesa/tenantporter/internal/security"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// connectionArgs validates the positional connection arguments shared by tenant commands.
var connectionArgs = cobra.MaximumNArgs(4)

const connectionUse = " [host] [realm] [username] [password]"

// withArgs returns a copy of cfg with positional connection arguments
// applied over flag, environment and file values.
func withArgs(cfg config.Config, args []string) config.Config {
	fields := []*string{&cfg.Host, &cfg.Realm, &cfg.Username, &cfg.Password}
	for i, arg := range args {
		if i < len(fields) && arg != "" {
			*fields[i] = arg
		}
	}
	return cfg
}

// applyProfile fills unset credentials from the saved connection matching
// cfg.Host and returns its service account key. A missing profile is not an
// error. The profile realm applies unless keepRealm is set.
func applyProfile(cfg *config.Config, store *config.Store, keepRealm bool) ([]byte, error) {
	p, err := store.Get(cfg.Host)
	var notFound *config.ErrProfileNotFound
	if errors.As(err, &notFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg.Host = p.Host
	if cfg.Username == "" && cfg.Password == "" {
		cfg.Username = p.Username
		cfg.Password = p.Password
	}
	if cfg.ServiceAccountID == "" {
		cfg.ServiceAccountID = p.ServiceAccountID
	}
	if p.Realm != "" && !keepRealm {
		cfg.Realm = p.Realm
	}
	return []byte(p.ServiceAccountJWK), nil
}

// realmSet reports whether the realm came from the user rather than defaults.
func realmSet(args []string) bool {
	if len(args) > 1 && args[1] != "" {
		return true
	}
	if f := rootCmd.PersistentFlags().Lookup("realm"); f != nil && f.Changed {
		return true
	}
	_, ok := os.LookupEnv(config.EnvPrefix + "_REALM")
	return ok
}

// serviceAccountKey returns the JWK named by the configuration: an AWS
// secret, a file, or the one saved with the connection.
func serviceAccountKey(ctx context.Context, cfg *config.Config, saved []byte) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJWKSecret != "":
		if !tenant.IsSecretRef(cfg.ServiceAccountJWKSecret) {
			return nil, &ops.ErrUsage{Reason: fmt.Sprintf("--sa-jwk-secret must start with %s or %s", tenant.SecretsManagerPrefix, tenant.ParameterStorePrefix)}
		}
		v, err := app.secrets.Resolve(ctx, cfg.ServiceAccountJWKSecret)
		if err != nil {
			return nil, err
		}
		return []byte(v), nil
	case cfg.ServiceAccountJWKFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountJWKFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account key: %w", err)
		}
		return data, nil
	default:
		return saved, nil
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password
	return string(password), err
}

// connect resolves connection settings and returns a logged-in session.
func connect(ctx context.Context, args []string) (*tenant.Session, error) {
	cfg := withArgs(*app.cfg, args)
	if cfg.Host == "" {
		return nil, &ops.ErrUsage{Reason: "tenant host is required (argument, --host or " + config.EnvPrefix + "_HOST)"}
	}

	store := config.NewStore(cfg.ConnectionsFile, cfg.MasterKeyFile)
	saved, err := applyProfile(&cfg, store, realmSet(args))
	if err != nil {
		return nil, err
	}
	jwk, err := serviceAccountKey(ctx, &cfg, saved)
	if err != nil {
		return nil, err
	}
	defer security.Wipe(&jwk)

	if cfg.Username != "" && cfg.Password == "" && len(jwk) == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		if cfg.Password, err = promptPassword(fmt.Sprintf("Password for %s: ", cfg.Username)); err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
	}

	s, err := tenant.NewSession(tenant.Options{
		Host:     cfg.Host,
		Realm:    cfg.Realm,
		Insecure: cfg.Insecure,
		Timeout:  cfg.RequestTimeout,
		Retry: tenant.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		Logger:      app.logger,
		ToolVersion: Version,
	})
	if err != nil {
		return nil, err
	}
	err = s.Login(ctx, tenant.LoginConfig{
		ServiceAccountID:  cfg.ServiceAccountID,
		ServiceAccountJWK: jwk,
		Username:          cfg.Username,
		Password:          cfg.Password,
		Browser:           cfg.Browser,
		ClientID:          cfg.LoginClientID,
		RedirectURI:       cfg.LoginRedirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("login to %s failed: %w", s.Host(), err)
	}
	app.logger.Info("connected", "host", s.Host(), "realm", s.Realm(), "user", s.Username())
	return s, nil
}

func opsDeps(s *tenant.Session) ops.Deps {
	return ops.Deps{
		Console: app.console,
		Logger:  app.logger,
		Meta:    ops.SessionMeta(s, Version),
	}
}

// requireMode rejects flag combinations that select no mode before any
// tenant call is made.
func requireMode(mode ops.Mode, reason string) error {
	if mode == ops.ModeNone {
		return &ops.ErrUsage{Reason: reason}
	}
	return nil
}
