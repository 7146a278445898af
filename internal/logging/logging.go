// Package logging builds the process logger: a logr front end writing
// through the standard library log package.
package logging

import (
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// New returns a logger that writes to the default log package output.
// Messages with V(level) above verbosity are discarded.
func New(verbosity int) logr.Logger {
	return NewWithLogger(log.Default(), verbosity)
}

// NewWithLogger is like New but writes to l.
func NewWithLogger(l *log.Logger, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			l.Printf("%s: %s", prefix, args)
			return
		}
		l.Print(args)
	}, funcr.Options{
		Verbosity: verbosity,
	})
}
