// Package logging sets up the process logger: stdout for the platform's
// log collector, plus an optional append-only file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// New returns a logger writing to stdout and, if file is non-empty, to
// file as well. The returned close function releases the file.
func New(stdout io.Writer, file string) (*log.Logger, func() error, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if file == "" {
		return log.New(stdout, "", log.LstdFlags), func() error { return nil }, nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", file, err)
	}
	return log.New(io.MultiWriter(stdout, f), "", log.LstdFlags), f.Close, nil
}
