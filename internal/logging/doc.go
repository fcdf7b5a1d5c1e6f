// Package logging provides structured logging for wanctl.
//
// This package wraps a package-level zap logger with convenience functions
// for the events wanctl cares about: HTTP requests served, calls made
// against the router API, and reconnect job lifecycle.
//
// # Log Levels
//
//   - Debug: Router calls that succeeded, request details
//   - Info: HTTP requests, job started/finished, server lifecycle
//   - Warn: Router calls that failed, shutdown timeouts
//   - Error: Startup failures
//
// # Configuration
//
// The server initializes logging explicitly from its config:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// CLI commands call InitializeFromEnv so they stay silent unless
// WANCTL_LOG_LEVEL is set. WANCTL_LOG_FORMAT=json switches to the JSON
// encoder for log shippers.
//
// Session tokens and the router password are never logged.
package logging
