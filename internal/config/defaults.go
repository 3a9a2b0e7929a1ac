package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ApplyDefaults sets default configuration values in the provided Viper instance.
func ApplyDefaults(v *viper.Viper, home string) {
	v.SetDefault("realm", "alpha")

	v.SetDefault("login.client-id", "idmAdminClient")
	v.SetDefault("login.redirect-uri", "") // derived from host when empty
	v.SetDefault("login.browser", false)
	v.SetDefault("insecure", false)

	v.SetDefault("retry.max-attempts", 3)
	v.SetDefault("retry.initial-delay", time.Second)
	v.SetDefault("retry.max-delay", 4*time.Second)
	v.SetDefault("timeouts.request", 30*time.Second)

	v.SetDefault("output.directory", ".")

	dir := filepath.Join(home, DirName)
	v.SetDefault("connections-file", filepath.Join(dir, "connections.json"))
	v.SetDefault("master-key-file", filepath.Join(dir, "masterkey.key"))
}
