package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileFormat mirrors Config with durations as strings so the written file
// reads "5s" rather than nanoseconds.
type fileFormat struct {
	Router struct {
		URL      string `yaml:"url"`
		Password string `yaml:"password"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"router"`
	Server struct {
		Listen   string `yaml:"listen"`
		MDNS     bool   `yaml:"mdns"`
		MDNSName string `yaml:"mdns_name"`
	} `yaml:"server"`
	Delays struct {
		Settle string `yaml:"settle"`
		Outage string `yaml:"outage"`
	} `yaml:"delays"`
	LogLevel string `yaml:"log_level"`
}

// Marshal renders cfg as YAML in the format Load reads.
func Marshal(cfg *Config) ([]byte, error) {
	var f fileFormat
	f.Router.URL = cfg.Router.URL
	f.Router.Password = cfg.Router.Password
	f.Router.Timeout = cfg.Router.Timeout.String()
	f.Server.Listen = cfg.Server.Listen
	f.Server.MDNS = cfg.Server.MDNS
	f.Server.MDNSName = cfg.Server.MDNSName
	f.Delays.Settle = cfg.Delays.Settle.String()
	f.Delays.Outage = cfg.Delays.Outage.String()
	f.LogLevel = cfg.LogLevel

	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteFile writes cfg to path atomically, creating the directory if
// needed. The file holds the router password, so it is created 0600.
func WriteFile(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	header := []byte(`# wanctl configuration
#
# router.password may be left empty and supplied via WANCTL_PASSWORD.
# Every key can be overridden with WANCTL_<SECTION>_<KEY>, e.g.
# WANCTL_SERVER_LISTEN=:9000.

`)
	data = append(header, data...)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
