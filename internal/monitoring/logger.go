// Package monitoring carries the process-wide diagnostic logger shared by
// the mapping pipeline, the SLAM bridge, and the command-line tools. Batch
// runs route skip counts and progress summaries through here so a single
// -quiet flag can silence them without touching each call site.
package monitoring

import "log"

// Logf writes one diagnostic line. It defaults to log.Printf; commands that
// own their output replace it with SetLogger or drop it with Mute.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger redirects package diagnostics. A nil f mutes them.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Mute()
		return
	}
	Logf = f
}

// Mute discards all package diagnostics.
func Mute() {
	Logf = func(string, ...interface{}) {}
}
