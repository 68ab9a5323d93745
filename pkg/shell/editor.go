package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// The interface the line editor has to satisfy. Kept minimal so that a
// richer editor can be plugged in later without touching the loop.
type editor interface {
	ReadCode(prompt string) (string, error)
}

type minEditor struct {
	in  *bufio.Reader
	out io.Writer
}

func newMinEditor(in, out *os.File) *minEditor {
	return &minEditor{bufio.NewReader(in), out}
}

func (ed *minEditor) ReadCode(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(ed.out, prompt)
	}
	line, err := ed.in.ReadString('\n')
	return chopLineEnding(line), err
}

func chopLineEnding(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}
