package shell

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/fraglab/frag/pkg/diag"
	"github.com/fraglab/frag/pkg/eval"
	"github.com/fraglab/frag/pkg/result"
)

// Configuration for the script mode.
type scriptCfg struct {
	Cmd bool
}

// Evaluates a script as one fragment and returns the exit status.
func script(lp *eval.Loop, fds [3]*os.File, args []string, cfg *scriptCfg) int {
	arg0 := args[0]

	var name, code string
	if cfg.Cmd {
		name = "code from -c"
		code = arg0
	} else {
		var err error
		name, err = filepath.Abs(arg0)
		if err != nil {
			fmt.Fprintf(fds[2],
				"cannot get full path of script %q: %v\n", arg0, err)
			return 2
		}
		code, err = readFileUTF8(name)
		if err != nil {
			fmt.Fprintf(fds[2], "cannot read script %q: %v\n", name, err)
			return 2
		}
	}

	r := lp.Do(code)
	switch r.Kind() {
	case result.Success:
		if v := r.Must().Value; v != nil {
			fmt.Fprintf(fds[1], "▶ %v\n", v)
		}
	case result.Failure:
		diag.ShowError(fds[2], r.Err())
		return 2
	case result.Buffer:
		fmt.Fprintf(fds[2], "%s ends with an incomplete fragment\n", name)
		return 2
	}
	return 0
}

var errSourceNotUTF8 = errors.New("source is not UTF-8")

func readFileUTF8(fname string) (string, error) {
	bytes, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", errSourceNotUTF8
	}
	return string(bytes), nil
}
