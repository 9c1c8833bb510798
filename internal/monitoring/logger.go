// Package monitoring holds the diagnostic logger and the Prometheus
// counters shared by the analysis pipeline, the CLI and the HTTP API.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used for every log-and-skip
// path (malformed labels, degenerate images, unusable distances). It
// defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes logging.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
