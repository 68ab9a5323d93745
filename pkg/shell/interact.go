package shell

import (
	"fmt"
	"io"
	"os"

	"github.com/fraglab/frag/pkg/buildinfo"
	"github.com/fraglab/frag/pkg/diag"
	"github.com/fraglab/frag/pkg/eval"
	"github.com/fraglab/frag/pkg/result"
	"github.com/fraglab/frag/pkg/sys"
)

// InteractConfig keeps configuration for the interactive mode.
type InteractConfig struct {
	Loop *eval.Loop
}

const (
	promptMain = "frag> "
	promptMore = "....> "
)

// Interact runs an interactive session until exit is requested or the input
// ends. Incomplete fragments are buffered and retried with the next line
// appended, so multi-line fragments can be typed naturally.
func Interact(fds [3]*os.File, cfg *InteractConfig) {
	tty := sys.IsATTY(fds[0].Fd())
	if tty {
		fmt.Fprintln(fds[1], "frag "+buildinfo.Version+buildinfo.VersionSuffix)
	}
	ed := newMinEditor(fds[0], fds[2])

	pending := ""
	for {
		prompt := ""
		if tty {
			if pending == "" {
				prompt = promptMain
			} else {
				prompt = promptMore
			}
		}
		line, err := ed.ReadCode(prompt)
		if err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintln(fds[2], "editor error:", err)
			break
		}

		text := line
		if pending != "" {
			text = pending + "\n" + line
			pending = ""
		}

		r := cfg.Loop.Do(text)
		switch r.Kind() {
		case result.Success:
			ev := r.Must()
			if ev.Value != nil {
				fmt.Fprintf(fds[1], "▶ %v\n", ev.Value)
			}
			if tty && ev.Feedback != "" {
				fmt.Fprintln(fds[1], ev.Feedback)
			}
		case result.Failure:
			diag.ShowError(fds[2], r.Err())
		case result.Buffer:
			pending = r.Partial()
		case result.Exit:
			if tty {
				fmt.Fprintln(fds[1], "bye")
			}
			return
		}
	}
}
