package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// WANCTL_ROUTER_URL or WANCTL_SERVER_LISTEN.
const EnvPrefix = "WANCTL"

// PasswordEnvVar is the short form accepted for the router password.
const PasswordEnvVar = "WANCTL_PASSWORD"

// Load reads configuration from path, or from the first wanctl.yaml found
// in the search path when path is empty, then applies environment
// overrides on top of the defaults. It returns the file that was used ("" if
// none was found).
func Load(path string) (*Config, string, error) {
	v := viper.New()
	v.SetConfigName(appName)
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
	}

	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("router.password", PasswordEnvVar, "WANCTL_ROUTER_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment only
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, v.ConfigFileUsed(), nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("router.url", d.Router.URL)
	v.SetDefault("router.password", "")
	v.SetDefault("router.timeout", d.Router.Timeout)
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.mdns", d.Server.MDNS)
	v.SetDefault("server.mdns_name", d.Server.MDNSName)
	v.SetDefault("delays.settle", d.Delays.Settle)
	v.SetDefault("delays.outage", d.Delays.Outage)
	v.SetDefault("log_level", d.LogLevel)
}

// SearchPaths returns the directories searched for wanctl.yaml, in order.
func SearchPaths() []string {
	paths := []string{
		".",
		filepath.Join(xdg.ConfigHome, appName),
	}
	for _, dir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(dir, appName))
	}
	return append(paths, filepath.Join("/etc", appName))
}

// DefaultPath returns where `wanctl config init` writes a new file.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, appName+".yaml")
}

// FindConfigFile returns the first existing config file in SearchPaths.
func FindConfigFile() (string, error) {
	for _, dir := range SearchPaths() {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, appName+ext)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("no config file found in standard locations")
}
