package options

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group of the agent.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds flags to the specified FlagSet object.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress takes an address as "host:port" and checks that the port is usable.
func ValidateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%q is not in a valid format (host:port): %w", addr, err)
	}
	if host != "" && net.ParseIP(host) == nil {
		if _, err := net.LookupHost(host); err != nil {
			return fmt.Errorf("%q is not a valid IP address or resolvable host: %w", host, err)
		}
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("%q is not a valid port number", port)
	}
	return nil
}
