// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// The SecureHandler masks sensitive values in log output: HTTP
// authorization headers, cookies, API keys for the detection backend,
// and secret-looking values detected by pattern matching. Even in
// verbose mode these are masked, so debug logs of scan traffic can be
// shared without leaking credentials for paywalled sources or the
// detection API.
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
