package ui

import (
	"fmt"
	"io"
)

// PrintCommandHeader prints a styled command header
func PrintCommandHeader(w io.Writer, title, command string, params ...Param) {
	header := NewHeader(title, command, params...)
	fmt.Fprintln(w, header.Render())
	fmt.Fprintln(w)
}

// PrintSuccess prints a styled success result
func PrintSuccess(w io.Writer, title string, details ...Param) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, NewSuccessResult(title, details...).Render())
}

// PrintFailure prints a styled failure result
func PrintFailure(w io.Writer, title string, err error, troubleshooting []string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, NewFailureResult(title, err, troubleshooting).Render())
}

// PrintWarning prints a styled warning result
func PrintWarning(w io.Writer, title string, details ...Param) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, NewWarningResult(title, details...).Render())
}
