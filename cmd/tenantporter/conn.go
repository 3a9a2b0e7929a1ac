package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/config"
	"github.com/nvinuesa/tenantporter/internal/ops"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

var connCmd = &cobra.Command{
	Use:   "conn",
	Short: "Manage saved tenant connections",
	Long: `Manage saved tenant connections.

Passwords and service account keys are encrypted with a master key kept in
$HOME/.tenantporter/masterkey.key. Other commands fill missing credentials from
the saved connection whose host contains the given host.`,
}

var connSaveFlags struct {
	noValidate bool
}

var connDescribeFlags struct {
	showSecrets bool
}

var connSaveCmd = &cobra.Command{
	Use:   "save <host> [realm] [username] [password]",
	Short: "Save a connection",
	Long: `Save or replace a connection. Credentials are verified by logging in
unless --no-validate is given.

Examples:
  tenantporter conn save https://openam-acme.id.forgerock.io alpha admin
  tenantporter conn save https://openam-acme.id.forgerock.io --sa-id 8a1c... --sa-jwk-file sa.jwk`,
	Args: cobra.RangeArgs(1, 4),
	RunE: runConnSave,
}

var connListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := store().List()
		if err != nil {
			return err
		}
		if !listLong {
			for _, p := range profiles {
				app.console.Print("%s", p.Host)
			}
			return nil
		}
		rows := make([][]string, 0, len(profiles))
		for _, p := range profiles {
			rows = append(rows, []string{p.Host, p.Realm, p.Username, p.ServiceAccountID})
		}
		return app.console.Table([]string{"Host", "Realm", "Username", "Service Account"}, rows)
	},
}

var connDescribeCmd = &cobra.Command{
	Use:   "describe <host>",
	Short: "Show a saved connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := store().Get(args[0])
		if err != nil {
			return err
		}
		password, jwk := mask(p.Password), mask(p.ServiceAccountJWK)
		if connDescribeFlags.showSecrets {
			password, jwk = p.Password, p.ServiceAccountJWK
		}
		return app.console.Table([]string{"Field", "Value"}, [][]string{
			{"Host", p.Host},
			{"Realm", p.Realm},
			{"Username", p.Username},
			{"Password", password},
			{"Service Account Id", p.ServiceAccountID},
			{"Service Account JWK", jwk},
		})
	},
}

var connDeleteCmd = &cobra.Command{
	Use:   "delete <host>",
	Short: "Delete a saved connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store().Delete(args[0]); err != nil {
			return err
		}
		app.console.Success("Deleted connection %s.", args[0])
		return nil
	},
}

func init() {
	connSaveCmd.Flags().BoolVar(&connSaveFlags.noValidate, "no-validate", false, "Save without logging in")
	connDescribeCmd.Flags().BoolVar(&connDescribeFlags.showSecrets, "show-secrets", false, "Show the password and service account key")
	addListFlags(connListCmd)

	connCmd.AddCommand(connSaveCmd, connListCmd, connDescribeCmd, connDeleteCmd)
}

func store() *config.Store {
	return config.NewStore(app.cfg.ConnectionsFile, app.cfg.MasterKeyFile)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func runConnSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := withArgs(*app.cfg, args)
	host, err := tenant.NormalizeHost(cfg.Host)
	if err != nil {
		return err
	}
	jwk, err := serviceAccountKey(ctx, &cfg, nil)
	if err != nil {
		return err
	}
	if cfg.Password == "" && cfg.Username != "" && len(jwk) == 0 {
		if cfg.Password, err = promptPassword(fmt.Sprintf("Password for %s: ", cfg.Username)); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if cfg.Username == "" && len(jwk) == 0 {
		return &ops.ErrUsage{Reason: "a username and password or a service account is required"}
	}

	if !connSaveFlags.noValidate {
		ind := app.console.Spinner(fmt.Sprintf("Connecting to %s...", host))
		s, err := tenant.NewSession(tenant.Options{
			Host:        host,
			Realm:       cfg.Realm,
			Insecure:    cfg.Insecure,
			Timeout:     cfg.RequestTimeout,
			Logger:      app.logger,
			ToolVersion: Version,
		})
		if err == nil {
			err = s.Login(ctx, tenant.LoginConfig{
				ServiceAccountID:  cfg.ServiceAccountID,
				ServiceAccountJWK: jwk,
				Username:          cfg.Username,
				Password:          cfg.Password,
				ClientID:          cfg.LoginClientID,
				RedirectURI:       cfg.LoginRedirectURI,
			})
		}
		if err != nil {
			ind.Fail(fmt.Sprintf("Could not log in to %s.", host))
			return err
		}
		ind.Succeed(fmt.Sprintf("Logged in to %s.", host))
	}

	err = store().Save(config.Profile{
		Host:              host,
		Realm:             cfg.Realm,
		Username:          cfg.Username,
		Password:          cfg.Password,
		ServiceAccountID:  cfg.ServiceAccountID,
		ServiceAccountJWK: string(jwk),
	})
	if err != nil {
		return err
	}
	app.console.Success("Saved connection %s.", host)
	return nil
}
