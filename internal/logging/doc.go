// Package logging provides opt-in file-based structured logging with
// rotation. When --debug is set, logs are written to ~/.docsearch/logs/
// for troubleshooting a build or query run.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
