// Package logging provides file-based logging with rotation for ferrex.
// With DefaultConfig, JSON log lines at info level and above are written to
// ~/.ferrex/logs/ferrex.log and also to stderr.
package logging
