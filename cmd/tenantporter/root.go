package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nvinuesa/tenantporter/internal/config"
	"github.com/nvinuesa/tenantporter/internal/console"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

var globalFlags struct {
	configFile string
	debug      bool
	verbose    bool
	noColor    bool
	quiet      bool
}

// app holds what PersistentPreRunE resolved for the running command.
var app struct {
	cfg     *config.Config
	logger  *slog.Logger
	console console.Console
	secrets tenant.SecretResolver
}

var rootCmd = &cobra.Command{
	Use:   "tenantporter",
	Short: "Export and import tenant configuration",
	Long: `tenantporter moves configuration between identity cloud tenants.

It exports email templates, social identity providers, SAML2 entities and
environment variables to JSON files, and imports them into another tenant.

Connection arguments may be given positionally after the verb:
  tenantporter <group> <verb> [host] [realm] [username] [password]

Examples:
  # Export every email template into one file
  tenantporter email template export -a https://openam-acme.id.forgerock.io

  # Import each *.idp.json file of a directory
  tenantporter idp import -A -D ./idps acme alpha

  # Save a connection so later commands only need the host
  tenantporter conn save https://openam-acme.id.forgerock.io alpha admin`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.String("host", "", "Tenant URL, or a fragment of a saved connection's host")
	pf.String("realm", "", "Realm (default alpha)")
	pf.String("username", "", "Tenant admin username")
	pf.String("password", "", "Tenant admin password")
	pf.String("sa-id", "", "Service account id")
	pf.String("sa-jwk-file", "", "Service account private JWK file")
	pf.String("sa-jwk-secret", "", "Service account private JWK as awssm:<id> or ssm:<name>")
	pf.String("login-client-id", "", "OAuth2 client used for admin login")
	pf.Bool("browser", false, "Log in through the system browser")
	pf.Bool("insecure", false, "Skip TLS certificate verification")
	pf.StringVar(&globalFlags.configFile, "config", "", "Config file (default $HOME/.tenantporter/config.yaml)")
	pf.BoolVar(&globalFlags.debug, "debug", false, "Debug logging")
	pf.BoolVar(&globalFlags.verbose, "verbose", false, "Informational logging")
	pf.BoolVar(&globalFlags.noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&globalFlags.quiet, "quiet", "q", false, "Hide spinners and progress bars")

	rootCmd.AddCommand(emailCmd)
	rootCmd.AddCommand(idpCmd)
	rootCmd.AddCommand(samlCmd)
	rootCmd.AddCommand(esvCmd)
	rootCmd.AddCommand(connCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	color := !globalFlags.noColor && term.IsTerminal(int(os.Stderr.Fd()))
	app.logger = newLogger(os.Stderr, logLevel(), !color)

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: globalFlags.configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}
	if cfg.ConfigFile != "" {
		app.logger.Debug("loaded config", "file", cfg.ConfigFile)
	}
	app.cfg = cfg
	app.console = console.NewTerminal(console.Options{
		Out:     cmd.OutOrStdout(),
		Err:     cmd.ErrOrStderr(),
		NoColor: !color,
		Quiet:   globalFlags.quiet,
	})
	app.secrets = tenant.NewAWSSecrets()
	return nil
}

func logLevel() slog.Level {
	switch {
	case globalFlags.debug:
		return slog.LevelDebug
	case globalFlags.verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func newLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}
