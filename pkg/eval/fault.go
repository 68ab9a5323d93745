package eval

import (
	"errors"
	"strings"
)

// ErrExitRequested is the designated sentinel for clean session
// termination. Any fault whose cause chain contains it, however deeply
// wrapped by initializer or invocation fault types, maps to an Exit
// outcome, never a Failure.
var ErrExitRequested = errors.New("exit requested")

// ErrInterrupted is the cause recorded when an invocation is aborted by an
// interrupt signal. It is always shown as the fixed message "Interrupted!",
// never as a raw signal.
var ErrInterrupted = errors.New("interrupted")

// Frame is one stack frame of a runtime fault.
type Frame struct {
	// Where names the function or location of the frame.
	Where string
	// Internal marks pipeline-internal frames, stripped from display
	// when the fault originates inside wrapped user code.
	Internal bool
}

// Fault is a classified runtime failure raised by invoking user code. It
// wraps the underlying reason and carries optional origin frame markers.
type Fault struct {
	Reason error
	Frames []Frame
}

// Error returns the message of the underlying reason.
func (f *Fault) Error() string {
	if errors.Is(f.Reason, ErrInterrupted) {
		return "Interrupted!"
	}
	return f.Reason.Error()
}

// Unwrap exposes the cause chain to errors.Is and errors.As.
func (f *Fault) Unwrap() error { return f.Reason }

// Show renders the fault with its remaining frames, one per line.
func (f *Fault) Show(indent string) string {
	var sb strings.Builder
	sb.WriteString("Exception: \033[31;1m" + f.Error() + "\033[m")
	for _, fr := range f.Frames {
		sb.WriteString("\n" + indent + "  at " + fr.Where)
	}
	return sb.String()
}

// classifyFault inspects a fault from the invocation phase and re-renders
// it for the user: faults whose innermost cause originates inside wrapped
// user code keep only user-relevant frames; everything else keeps its full
// trace.
func classifyFault(err error) error {
	var f *Fault
	if !errors.As(err, &f) {
		return err
	}
	if errors.Is(f.Reason, ErrInterrupted) {
		return &Fault{Reason: ErrInterrupted}
	}
	if !hasUserFrame(f.Frames) {
		// Unrecognized fault: propagate with the full trace.
		return f
	}
	kept := make([]Frame, 0, len(f.Frames))
	for _, fr := range f.Frames {
		if !fr.Internal {
			kept = append(kept, fr)
		}
	}
	return &Fault{Reason: f.Reason, Frames: kept}
}

func hasUserFrame(frames []Frame) bool {
	for _, fr := range frames {
		if !fr.Internal {
			return true
		}
	}
	return false
}
