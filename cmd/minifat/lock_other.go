//go:build !unix

package main

// lockImage does nothing where flock is not available.
func lockImage(file interface{}) (func() error, error) {
	return func() error { return nil }, nil
}
