package eval

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Interrupt installation is scoped: installing pushes a handler onto a
// stack and masks whatever was installed before; the returned restore
// function pops it and re-exposes the previous handler. Only the handler on
// top of the stack observes signals, so nested installations compose.
var ints intStack

type intStack struct {
	mu    sync.Mutex
	stack []chan struct{}
	sigCh chan os.Signal
	stop  chan struct{}
}

// ListenInterrupts installs an interrupt handler and returns a channel that
// is closed when a SIGINT or SIGQUIT arrives, plus a restore function that
// uninstalls the handler and re-exposes the previously installed one.
func ListenInterrupts() (<-chan struct{}, func()) {
	return ints.install()
}

func (s *intStack) install() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intCh := make(chan struct{})
	s.stack = append(s.stack, intCh)
	if len(s.stack) == 1 {
		s.sigCh = make(chan os.Signal, 1)
		s.stop = make(chan struct{})
		signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGQUIT)
		go s.relay(s.sigCh, s.stop)
	}
	return intCh, func() { s.restore(intCh) }
}

func (s *intStack) restore(intCh chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] == intCh {
			s.stack = append(s.stack[:i], s.stack[i+1:]...)
			break
		}
	}
	if len(s.stack) == 0 && s.sigCh != nil {
		signal.Stop(s.sigCh)
		close(s.stop)
		s.sigCh, s.stop = nil, nil
	}
}

func (s *intStack) relay(sigCh chan os.Signal, stop chan struct{}) {
	for {
		select {
		case <-sigCh:
			s.deliver()
		case <-stop:
			return
		}
	}
}

// deliver closes the channel on top of the stack, if it is still open.
func (s *intStack) deliver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return
	}
	top := s.stack[len(s.stack)-1]
	select {
	case <-top:
		// Already closed.
	default:
		close(top)
	}
}
