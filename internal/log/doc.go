// Package log builds the slog loggers of boardaid.
//
// Every logger wraps its text or JSON handler in a SecureHandler that
// masks credentials before they reach the output: site cookies, S3 keys,
// authorization headers and passwords embedded in proxy or endpoint URLs.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetching board", "url", boardURL, "cookie", cookie) // cookie=***REDACTED***
package log
