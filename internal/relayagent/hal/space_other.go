//go:build !linux && !darwin && !freebsd

package hal

import (
	"errors"
)

func diskFree(string) (uint64, error) {
	return 0, errors.New("free space unknown on this platform")
}
