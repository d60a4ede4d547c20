// Package xio provides small helpers around io types.
package xio

import (
	"io"
	"strings"

	"github.com/rebasekit/ostag/pkg/xlog"
)

// CloseAndSkipError is used to close the io.Closer and ignore the error returned.
func CloseAndSkipError(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// CloseAndLogError is used to close the io.Closer and log out as warning when the error
// returned is not nil.
// You are recommended to use this function to fix errcheck lint warning. For example
// "defer CloseAndLogError(rc)" instead of "defer rc.Close()".
func CloseAndLogError(c io.Closer, messages ...string) {
	var msg string
	if len(messages) > 0 {
		msg = strings.Join(messages, ": ")
	}

	err := c.Close()
	if err == nil {
		return
	}

	if msg == "" {
		xlog.Warnf("unable to close: %+v", err)
		return
	}
	xlog.Warnf("unable to close: %s: %+v", msg, err)
}
