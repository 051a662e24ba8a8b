// Package log provides sanitizing structured logging on top of log/slog.
//
// Crawled addresses and configured request headers regularly carry session
// cookies, bearer tokens and credentials in URLs. The SecureHandler masks
// them before any record reaches the output:
//   - sensitive attribute keys (cookie, authorization, token, dsn, ...)
//   - values that look like credentials (JWTs, bearer/basic tokens, PEM keys)
//   - URL user-info and secret query parameters in URL-valued strings
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	slog.SetDefault(logger)
//
//	logger.Debug("fetch", "url", "https://user:pw@example.com/?token=abc")
//	// url=https://***REDACTED***@example.com/?token=%2A%2A%2AREDACTED%2A%2A%2A
package log
