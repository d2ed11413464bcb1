// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, API keys)
//   - A verbose console level and an always-debug rotating log file
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Per-site cookies from the configuration file
//   - The LLM API key, by key name and by its sk- value shape
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger, closer, err := log.NewLogger(log.Options{
//	    Console: os.Stderr,
//	    Verbose: true,
//	    File:    "/var/log/sitescribe/sitescribe.log",
//	})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	logger.Info("request sent",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	    "url", "https://example.com/",
//	)
package log
