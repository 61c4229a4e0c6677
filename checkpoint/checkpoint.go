// Package checkpoint decorates errors with the location they passed through.
// A chain of checkpoints reads similar to a short stacktrace while every
// error added to it can still be checked by errors.Is and retrieved by errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps err in a checkpoint holding the location of the caller.
// It returns nil if err == nil.
func From(err error) error {
	if err == nil || isPassthrough(err) {
		return err
	}

	return newCheckpoint(nil, err)
}

// Wrap adds a checkpoint to prev which is further described by err.
// It returns nil if prev == nil, so it can be used directly on the result
// of a call:
//  var ErrAllocate = errors.New("could not allocate")
//
//  func allocate() error {
//  	err := scan()
//  	return checkpoint.Wrap(err, ErrAllocate)
//  }
// Both errors.Is(err, ErrAllocate) and errors.Is for the error returned by
// scan() report true for the result.
func Wrap(prev, err error) error {
	if prev == nil || isPassthrough(prev) {
		return prev
	}

	return newCheckpoint(err, prev)
}

// Wrapf is Wrap with a formatted description, which wraps err using %w.
func Wrapf(prev, err error, format string, args ...interface{}) error {
	if prev == nil || isPassthrough(prev) {
		return prev
	}

	return newCheckpoint(fmt.Errorf("%w: "+format, append([]interface{}{err}, args...)...), prev)
}

// isPassthrough reports errors which must reach the caller unchanged.
// See https://github.com/golang/go/issues/39155
func isPassthrough(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

type checkpoint struct {
	err  error
	prev error

	file string
	line int
}

func newCheckpoint(err, prev error) *checkpoint {
	// Skip newCheckpoint and the exported function calling it.
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = ""
	}

	return &checkpoint{
		err:  err,
		prev: prev,
		file: filepath.Base(file),
		line: line,
	}
}

func (c *checkpoint) location() string {
	if c.file == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", c.file, c.line)
}

func (c *checkpoint) Error() string {
	var b strings.Builder
	b.WriteString(c.location())
	if c.err != nil {
		b.WriteString(": ")
		b.WriteString(c.err.Error())
	}

	if c.prev != nil {
		b.WriteString("\n\t")
		b.WriteString(strings.ReplaceAll(c.prev.Error(), "\n", "\n\t"))
	}

	return b.String()
}

// Message returns only the descriptions of the chain without any locations,
// outermost first, joined by ": ".
func Message(err error) string {
	var parts []string
	for err != nil {
		c, ok := err.(*checkpoint)
		if !ok {
			parts = append(parts, err.Error())
			break
		}

		if c.err != nil {
			parts = append(parts, c.err.Error())
		}
		err = c.prev
	}

	return strings.Join(parts, ": ")
}

func (c *checkpoint) Unwrap() error {
	return c.prev
}

func (c *checkpoint) Is(target error) bool {
	return c.err != nil && errors.Is(c.err, target)
}

func (c *checkpoint) As(target interface{}) bool {
	return c.err != nil && errors.As(c.err, target)
}
