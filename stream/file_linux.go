//go:build linux

package stream

import (
	"os"

	"golang.org/x/sys/unix"
)

func adviseSequential(f *os.File) {
	// only a hint; errors are irrelevant
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
