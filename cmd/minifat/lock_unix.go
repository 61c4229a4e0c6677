//go:build unix

package main

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var errImageInUse = errors.New("the image is used by another process")

type fdFile interface {
	Fd() uintptr
}

// lockImage takes an exclusive advisory lock on file if it is backed by the
// operating system. The returned function releases it.
func lockImage(file interface{}) (func() error, error) {
	osFile, ok := file.(fdFile)
	if !ok {
		return func() error { return nil }, nil
	}

	fd := int(osFile.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errImageInUse
		}
		return nil, fmt.Errorf("locking the image: %w", err)
	}

	return func() error {
		return unix.Flock(fd, unix.LOCK_UN)
	}, nil
}
