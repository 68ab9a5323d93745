// Package diag renders errors for human consumption.
package diag

import (
	"fmt"
	"io"
	"strings"
)

// Shower wraps the Show method. Errors that implement it control their own
// multi-line rendering; everything else is shown as a single red line.
type Shower interface {
	// Show takes an indentation string, which is prepended to every line
	// except the first, and returns the rendered text.
	Show(indent string) string
}

// ShowError shows an error to the given writer, adding a trailing newline.
// It uses the Show method if the error implements Shower.
func ShowError(w io.Writer, err error) {
	if shower, ok := err.(Shower); ok {
		fmt.Fprintln(w, shower.Show(""))
	} else {
		Complain(w, err.Error())
	}
}

// Complain prints a message in bold red, adding a trailing newline.
func Complain(w io.Writer, msg string) {
	fmt.Fprintf(w, "\033[31;1m%s\033[m\n", msg)
}

// Complainf is like Complain, but accepts a format string and arguments.
func Complainf(w io.Writer, format string, args ...interface{}) {
	Complain(w, fmt.Sprintf(format, args...))
}

// Error is an error with a type tag, suitable for parse and compile
// diagnostics shown to the user verbatim.
type Error struct {
	Type    string
	Message string
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	return e.Type + ": " + e.Message
}

// Show shows the error with the type tag as a header.
func (e *Error) Show(indent string) string {
	header := fmt.Sprintf("%s: \033[31;1m%s\033[m", title(e.Type), e.Message)
	return strings.ReplaceAll(header, "\n", "\n"+indent)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
