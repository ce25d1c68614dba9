// Package logging provides a simple leveled logging interface for the
// imagestream service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (DEBUG=true forces debug). Code that logs on behalf of a single unit of
// work, such as one stream session, uses a scoped Logger:
//
//	log := logging.With("session", id, "route", route)
//	log.Debug("emitted chunk %d", n)
package logging
