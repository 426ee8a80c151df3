package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Flags returns the flag sets grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields derived from other options.
	Complete() error

	// Validate checks the completed options.
	Validate() error
}

// NamedFlagSetOptions is kept as the name used by command packages.
type NamedFlagSetOptions = CliOptions
