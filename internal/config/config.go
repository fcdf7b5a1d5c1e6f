package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/muurk/wanctl/internal/jobs"
	"github.com/muurk/wanctl/internal/router"
)

const (
	appName = "wanctl"

	// DefaultListen is the address `wanctl serve` binds to
	DefaultListen = ":8000"

	// DefaultMDNSName is the instance name advertised over mDNS
	DefaultMDNSName = "wanctl"

	// DefaultLogLevel is used by the server when nothing is configured
	DefaultLogLevel = "info"
)

// Config is the complete wanctl configuration.
type Config struct {
	Router   RouterConfig `mapstructure:"router"`
	Server   ServerConfig `mapstructure:"server"`
	Delays   DelayConfig  `mapstructure:"delays"`
	LogLevel string       `mapstructure:"log_level"`
}

// RouterConfig identifies the router and how to authenticate against it.
type RouterConfig struct {
	URL      string        `mapstructure:"url"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	MDNS     bool   `mapstructure:"mdns"`
	MDNSName string `mapstructure:"mdns_name"`
}

// DelayConfig holds the reconnect timing, see jobs.Delays.
type DelayConfig struct {
	Settle time.Duration `mapstructure:"settle"`
	Outage time.Duration `mapstructure:"outage"`
}

// Default returns a configuration with every field but the password set.
func Default() *Config {
	delays := jobs.DefaultDelays()
	return &Config{
		Router: RouterConfig{
			URL:     router.DefaultBaseURL,
			Timeout: router.DefaultTimeout,
		},
		Server: ServerConfig{
			Listen:   DefaultListen,
			MDNSName: DefaultMDNSName,
		},
		Delays: DelayConfig{
			Settle: delays.Settle,
			Outage: delays.Outage,
		},
		LogLevel: DefaultLogLevel,
	}
}

// JobDelays converts the delay settings for the job runner.
func (c *Config) JobDelays() jobs.Delays {
	return jobs.Delays{Settle: c.Delays.Settle, Outage: c.Delays.Outage}
}

// FieldError describes one invalid setting.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every setting and returns all problems joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Router.Password == "" {
		errs = append(errs, &FieldError{"router.password", "is required (set it in the config file or WANCTL_PASSWORD)"})
	}

	if u, err := url.Parse(c.Router.URL); err != nil {
		errs = append(errs, &FieldError{"router.url", err.Error()})
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, &FieldError{"router.url", fmt.Sprintf("%q must be an absolute http(s) URL", c.Router.URL)})
	}

	if c.Router.Timeout < 0 {
		errs = append(errs, &FieldError{"router.timeout", "must not be negative"})
	}
	if c.Delays.Settle < 0 {
		errs = append(errs, &FieldError{"delays.settle", "must not be negative"})
	}
	if c.Delays.Outage < 0 {
		errs = append(errs, &FieldError{"delays.outage", "must not be negative"})
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errs = append(errs, &FieldError{"server.listen", err.Error()})
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, &FieldError{"log_level", fmt.Sprintf("unknown level %q", c.LogLevel)})
	}

	return errors.Join(errs...)
}
