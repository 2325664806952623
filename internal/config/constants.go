// Package config holds process-wide compiler configuration: a handful
// of package vars consulted from inside the analysis layers rather than
// threaded through every call.
package config

// Version is the current PythoC core version.
var Version = "0.1.0"

// IsTestMode normalizes non-deterministic output (inline-id suffixes,
// session tags) for golden-file comparisons.
var IsTestMode = false

// StrictGoto, when true (the only mode this compiler implements),
// rejects sibling/uncle goto_end targets outright: a jump into a
// sibling scope could observe variables whose initialization the
// ownership analysis never computed on that path.
var StrictGoto = true

// SourceFileExt is the recognized extension for a pre-parsed translation
// unit bundle consumed by cmd/pythoc.
const SourceFileExt = ".pythoc.json"
