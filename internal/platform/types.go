// Package platform identifies the build host and maps it to the platform
// tag used in release download URLs.
//
// Detection order for the host triple: the HOST environment variable,
// the config.guess helper bundled with the project's depends tree, and
// finally a triple synthesized from the Go runtime (with the darwin
// major version filled in via gopsutil).
package platform

// Info describes the detected build host.
type Info struct {
	// Triple is the autotools host triple, e.g. "x86_64-pc-linux-gnu".
	Triple string
	// Source records where the triple came from: "env", "config.guess",
	// or "runtime".
	Source string
}

// Pattern maps a glob over host triples to the platform tag used in
// release download URLs. Patterns are evaluated in order; the first
// match wins.
type Pattern struct {
	Glob string
	Tag  string
}
