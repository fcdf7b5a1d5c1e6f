// Package config loads wanctl's configuration.
//
// Settings come from, in increasing priority: built-in defaults, a YAML
// file named wanctl.yaml, and WANCTL_* environment variables. Command-line
// flags are applied on top by cmd/wanctl.
//
// # Configuration File Location
//
// The first wanctl.yaml found wins:
//   - the current directory
//   - $XDG_CONFIG_HOME/wanctl (usually ~/.config/wanctl)
//   - each $XDG_CONFIG_DIRS entry + /wanctl
//   - /etc/wanctl
//
// # Example
//
//	router:
//	  url: http://192.168.0.1/
//	  password: ""          # or WANCTL_PASSWORD
//	  timeout: 10s
//	server:
//	  listen: :8000
//	  mdns: false
//	  mdns_name: wanctl
//	delays:
//	  settle: 1s
//	  outage: 5s
//	log_level: info
//
// # Security
//
// The router password is the only secret. Files written by WriteFile are
// created with 0600 permissions.
package config
