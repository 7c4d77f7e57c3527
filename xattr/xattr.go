// Package xattr stores small typed values in extended attributes of open files.
package xattr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/pkg/xattr"
)

const userNS = "user."

var endian = binary.LittleEndian

// ErrNotSet is returned when the attribute does not exist.
var ErrNotSet = errors.New("xattr not set")

// Unsupported checks if the error indicates that the filesystem has no support for extended attributes,
// or does not allow user attributes on the file.
func Unsupported(err error) bool {
	var e *xattr.Error
	if !errors.As(err, &e) {
		return false
	}
	// ENOTSUP and EOPNOTSUPP are the same on linux, but not on all platforms
	return e.Err == syscall.ENOTSUP || e.Err == syscall.EOPNOTSUPP || e.Err == syscall.EPERM
}

func Get(f *os.File, name string) ([]byte, error) {
	data, err := xattr.FGet(f, userNS+name)
	var e *xattr.Error
	if errors.As(err, &e) && e.Err == xattr.ENOATTR {
		return nil, ErrNotSet
	} else if err != nil {
		return nil, err
	}
	return data, nil
}

func GetString(f *os.File, name string) (string, error) {
	data, err := Get(f, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func GetUint(f *os.File, name string) (uint64, error) {
	data, err := Get(f, name)
	if err != nil {
		return 0, err
	} else if len(data) != 8 {
		return 0, fmt.Errorf("xattr: wrong int format")
	}
	return endian.Uint64(data), nil
}

func GetTime(f *os.File, name string) (time.Time, error) {
	nanos, err := GetUint(f, name)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(nanos)).UTC(), nil
}

func Set(f *os.File, name string, data []byte) error {
	return xattr.FSet(f, userNS+name, data)
}

func SetString(f *os.File, name string, data string) error {
	return Set(f, name, []byte(data))
}

func SetUint(f *os.File, name string, v uint64) error {
	var b [8]byte
	endian.PutUint64(b[:], v)
	return Set(f, name, b[:])
}

func SetTime(f *os.File, name string, t time.Time) error {
	return SetUint(f, name, uint64(t.UTC().UnixNano()))
}

// Remove deletes the attribute. It is not an error if the attribute was not set.
func Remove(f *os.File, name string) error {
	err := xattr.FRemove(f, userNS+name)
	var e *xattr.Error
	if errors.As(err, &e) && e.Err == xattr.ENOATTR {
		return nil
	}
	return err
}
