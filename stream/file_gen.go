//go:build !linux

package stream

import "os"

func adviseSequential(f *os.File) {}
