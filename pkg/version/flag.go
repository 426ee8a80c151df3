package version

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const versionFlagName = "version"

var printVersion bool

// AddFlags registers the --version flag on the given flag set.
func AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&printVersion, versionFlagName, false, "Print version information and quit.")
}

// PrintAndExitIfRequested prints the version table and exits when --version was set.
func PrintAndExitIfRequested() {
	if printVersion {
		fmt.Printf("%s\n", Get().Text())
		os.Exit(0)
	}
}
