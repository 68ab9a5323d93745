// Package eval implements the incremental evaluation loop.
//
// Each fragment flows through a fixed sequence of stages: parsing,
// wrapping, compiling, loading, invoking, importing, advance. Every stage
// returns its outcome through the result algebra; a non-success
// short-circuits the remaining stages, and nothing escapes the loop as a
// panic except truly unrecoverable host-level errors.
package eval

import (
	"errors"
	"fmt"
	"io"

	"github.com/fraglab/frag/pkg/imports"
	"github.com/fraglab/frag/pkg/registry"
	"github.com/fraglab/frag/pkg/result"
	"github.com/fraglab/frag/pkg/wrap"
)

// LoopConfig keeps the collaborators of a Loop.
type LoopConfig struct {
	Parser    Parser
	Compiler  Compiler
	Runtime   Runtime
	Generator *wrap.Generator
	// Render turns ledger entries into import preamble lines.
	Render imports.Renderer
	// Warn is the destination of compiler diagnostics that do not fail
	// the fragment. Defaults to discarding.
	Warn io.Writer
	// Interrupt, if not nil, is called before invocation to obtain an
	// interrupt channel and a function that restores the previously
	// installed handler. ListenInterrupts satisfies this.
	Interrupt func() (<-chan struct{}, func())
}

// Loop orchestrates the evaluation of fragments against one session. A
// Loop must be confined to one logical thread; concurrent sessions need
// independent Loops, Sessions and Registries.
type Loop struct {
	session   *Session
	cfg       LoopConfig
	hooks     []func()
	noHistory bool
}

// NewLoop creates a Loop around the given session and collaborators.
func NewLoop(session *Session, cfg LoopConfig) *Loop {
	if cfg.Warn == nil {
		cfg.Warn = io.Discard
	}
	return &Loop{session: session, cfg: cfg}
}

// Session returns the session the loop evaluates against.
func (lp *Loop) Session() *Session { return lp.session }

// Evaluated is the outcome of one successful iteration.
type Evaluated[T any] struct {
	// Wrapper is the generated wrapper's identifier.
	Wrapper string
	// Exports are the import entries the fragment exported, with their
	// prefixes rewritten to Wrapper.
	Exports []imports.Entry
	// Feedback is a one-line summary of what the fragment did.
	Feedback string
	// Value is the caller-transformed display value.
	Value T
}

// Do evaluates one fragment and returns the untransformed outcome.
func (lp *Loop) Do(text string) result.Res[Evaluated[interface{}]] {
	return Eval(lp, text, func(v interface{}) interface{} { return v })
}

// Eval evaluates one fragment, applying transform to the display value of
// a successful invocation.
func Eval[T any](lp *Loop, text string, transform func(interface{}) T) result.Res[Evaluated[T]] {
	r := result.FlatMap(lp.parseStage(text), lp.wrapStage)
	r2 := result.FlatMap(result.FlatMap(r, lp.compileStage), lp.loadStage)
	r3 := result.FlatMap(result.FlatMap(r2, lp.invokeStage), lp.importStage)
	out := result.Map(r3, func(ev Evaluated[interface{}]) Evaluated[T] {
		return Evaluated[T]{ev.Wrapper, ev.Exports, ev.Feedback, transform(ev.Value)}
	})
	switch out.Kind() {
	case result.Skip, result.Buffer:
		// Not yet a complete fragment; nothing to record.
	default:
		if !lp.noHistory {
			lp.session.AddHistory(text)
		}
	}
	return out
}

// Bootstrap runs a fixed fragment through the pipeline with the line
// counter temporarily negative, so the first user-visible fragment is line
// 0. Bootstrap fragments are not recorded in history.
func (lp *Loop) Bootstrap(code string) error {
	lp.session.line = -1
	lp.noHistory = true
	defer func() {
		lp.noHistory = false
		if lp.session.line < 0 {
			lp.session.line = 0
		}
	}()
	r := lp.Do(code)
	switch r.Kind() {
	case result.Success, result.Skip:
		return nil
	case result.Buffer:
		return errors.New("bootstrap fragment is incomplete")
	case result.Exit:
		return errors.New("bootstrap fragment requested exit")
	}
	return r.Err()
}

// AddShutdownHook registers a function to run when the session exits
// cleanly. Hooks run in reverse registration order.
func (lp *Loop) AddShutdownHook(f func()) {
	lp.hooks = append(lp.hooks, f)
}

// Shutdown runs the registered shutdown hooks.
func (lp *Loop) Shutdown() {
	for i := len(lp.hooks) - 1; i >= 0; i-- {
		lp.hooks[i]()
	}
}

// Stage payloads. Each stage embeds its predecessor's so later stages see
// the whole iteration context.

type parsed struct {
	decls   []Declaration
	display string
}

type wrapped struct {
	parsed
	units []wrap.Unit
	name  string
	entry string
}

type compiled struct {
	wrapped
	out *Compiled
}

type loaded struct {
	compiled
	loadable Loadable
}

type invoked struct {
	loaded
	value interface{}
}

func (lp *Loop) parseStage(text string) result.Res[parsed] {
	decls, display, err := lp.cfg.Parser.Parse(text, lp.session.Line())
	switch {
	case errors.Is(err, ErrBlankInput):
		return result.Skipped[parsed]()
	case errors.Is(err, ErrIncompleteInput):
		return result.Buffered[parsed](text)
	case err != nil:
		// The fragment owned a line even though it never compiled;
		// advancing here keeps wrapper identifiers unique across
		// retries of the same line.
		lp.session.advance()
		return result.Fail[parsed](err)
	case len(decls) == 0 && display == "":
		return result.Skipped[parsed]()
	}
	return result.OK(parsed{decls, display})
}

func (lp *Loop) wrapStage(p parsed) result.Res[wrapped] {
	line := lp.session.advance()
	preamble := lp.session.Ledger.PreviousImportBlock(
		referencedNames(p.decls), lp.cfg.Render)
	units, name, err := lp.cfg.Generator.Generate(
		line, wrapDecls(p.decls), preamble, p.display)
	if err != nil {
		return result.Fail[wrapped](err)
	}
	return result.OK(wrapped{p, units, name, units[0].Entry})
}

func (lp *Loop) compileStage(w wrapped) result.Res[compiled] {
	out, err := lp.cfg.Compiler.Compile(w.units, lp.cfg.Warn)
	if err != nil {
		return result.Fail[compiled](err)
	}
	return result.OK(compiled{w, out})
}

func (lp *Loop) loadStage(c compiled) result.Res[loaded] {
	for _, a := range c.out.Artifacts {
		lp.session.Registry.AddArtifact(a)
	}
	ld := lp.session.Registry.CurrentLoader(registry.Runtime)
	loadable, err := lp.cfg.Runtime.Load(c.name, c.entry, ld)
	if err != nil {
		// Compile success should guarantee loadability, so this is
		// strongly exceptional.
		return result.Fail[loaded](fmt.Errorf(
			"cannot load %s after successful compile: %w", c.name, err))
	}
	return result.OK(loaded{c, loadable})
}

func (lp *Loop) invokeStage(l loaded) result.Res[invoked] {
	var intCh <-chan struct{}
	if lp.cfg.Interrupt != nil {
		ch, restore := lp.cfg.Interrupt()
		defer restore()
		intCh = ch
	}
	v, err := l.loadable.InvokeEntry(intCh)
	if err != nil {
		if errors.Is(err, ErrExitRequested) {
			return result.Exited[invoked]()
		}
		return result.Fail[invoked](classifyFault(err))
	}
	return result.OK(invoked{l, v})
}

func (lp *Loop) importStage(iv invoked) result.Res[Evaluated[interface{}]] {
	exports := make([]imports.Entry, len(iv.out.Exports))
	for i, e := range iv.out.Exports {
		if !e.External {
			// Point the entry at the wrapper that now owns the
			// binding, so later fragments can reference it.
			e.Prefix = iv.name
		}
		exports[i] = e
	}
	lp.session.Ledger.Update(exports)
	return result.OK(Evaluated[interface{}]{
		Wrapper:  iv.name,
		Exports:  exports,
		Feedback: feedback(iv.decls),
		Value:    iv.value,
	})
}

func wrapDecls(decls []Declaration) []wrap.Decl {
	var ds []wrap.Decl
	for _, d := range decls {
		if d.Code == "" {
			// Refs-only declaration for a display expression.
			continue
		}
		ds = append(ds, wrap.Decl{Code: d.Code, Member: d.Member, FlatEscape: d.FlatEscape})
	}
	return ds
}
