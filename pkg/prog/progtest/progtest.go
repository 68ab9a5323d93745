// Package progtest contains utilities for testing subprograms.
package progtest

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fraglab/frag/pkg/must"
	"github.com/fraglab/frag/pkg/prog"
)

// Output captures one run of a subprogram.
type Output struct {
	Ret    int
	Stdout string
	Stderr string
}

// Run runs a program with the given stdin content and arguments (excluding
// the program name) and captures its output.
func Run(t *testing.T, p prog.Program, stdin string, args ...string) Output {
	t.Helper()
	in := tempFileWith(t, stdin)
	r1, w1 := must.OK2(os.Pipe())
	r2, w2 := must.OK2(os.Pipe())
	outCh := readAsync(r1)
	errCh := readAsync(r2)

	ret := prog.Run([3]*os.File{in, w1, w2}, append([]string{"frag"}, args...), p)
	w1.Close()
	w2.Close()
	return Output{Ret: ret, Stdout: <-outCh, Stderr: <-errCh}
}

func readAsync(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		defer r.Close()
		bs, _ := io.ReadAll(r)
		ch <- string(bs)
	}()
	return ch
}

func tempFileWith(t *testing.T, content string) *os.File {
	t.Helper()
	f := must.OK1(os.CreateTemp(t.TempDir(), "stdin"))
	must.OK1(f.WriteString(content))
	must.OK1(f.Seek(0, io.SeekStart))
	t.Cleanup(func() { f.Close() })
	return f
}

// Contains fails the test unless got contains want.
func Contains(t *testing.T, what, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("%s = %q, want content containing %q", what, got, want)
	}
}
