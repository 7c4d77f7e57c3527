//go:build !linux

package transfer

import (
	"errors"
	"os"
)

const cloneSupported = false

func cloneFile(dst, src *os.File) error {
	return errors.New("copy-on-write not supported")
}
