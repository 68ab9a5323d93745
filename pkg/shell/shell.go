// Package shell is the terminal front end of frag: it assembles a session
// from the command-line flags and the optional YAML config, and runs either
// the interactive loop or a script.
package shell

import (
	"fmt"
	"os"

	"github.com/fraglab/frag/pkg/eval"
	"github.com/fraglab/frag/pkg/golang"
	"github.com/fraglab/frag/pkg/hist"
	"github.com/fraglab/frag/pkg/logutil"
	"github.com/fraglab/frag/pkg/prog"
	"github.com/fraglab/frag/pkg/registry"
	"github.com/fraglab/frag/pkg/resolve"
	"github.com/fraglab/frag/pkg/wrap"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram. It is always suitable, so it should come
// last in a Composite.
type Program struct{}

func (Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if f.CodeInArg && len(args) == 0 {
		return prog.BadUsage("no code given with -c")
	}

	cfg, err := loadConfig(f.Config)
	if err != nil {
		fmt.Fprintln(fds[2], "Warning:", err)
		fmt.Fprintln(fds[2], "Continuing without session config.")
		cfg = &Config{}
	}

	lp, err := setup(fds, f, cfg)
	if err != nil {
		return err
	}
	defer lp.Shutdown()

	if len(args) > 0 {
		return prog.Exit(script(lp, fds, args, &scriptCfg{Cmd: f.CodeInArg}))
	}
	Interact(fds, &InteractConfig{Loop: lp})
	return nil
}

// setup builds the session: kernel, registry with resolved library roots,
// the bootstrap fragment, and the history store.
func setup(fds [3]*os.File, f *prog.Flags, cfg *Config) (*eval.Loop, error) {
	k, err := golang.NewKernel(golang.Config{
		Stdout: fds[1], Stderr: fds[2], Unrestricted: cfg.Unrestricted})
	if err != nil {
		return nil, err
	}

	reg := registry.New(nil)
	if len(cfg.Libraries) > 0 {
		paths, err := resolve.New(cfg.Roots...).Resolve(cfg.Libraries)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning:", err)
		}
		reg.AddPaths(registry.Runtime, paths)
	}

	lp := eval.NewLoop(eval.NewSession(reg), eval.LoopConfig{
		Parser:    k,
		Compiler:  k,
		Runtime:   k,
		Generator: wrap.NewGenerator("frag", wrap.FlatModule, golang.Template()),
		Render:    golang.Render,
		Warn:      fds[2],
		Interrupt: eval.ListenInterrupts,
	})

	// Extra config code joins the built-in bootstrap so that the whole
	// bootstrap runs as one fragment at line -1. Bootstrap failure aborts
	// setup, so the history store is only opened once it has succeeded;
	// the bolt store in particular holds a file lock until closed.
	bootstrap := golang.Bootstrap
	if cfg.Bootstrap != "" {
		bootstrap += "\n\n" + cfg.Bootstrap
	}
	if err := lp.Bootstrap(bootstrap); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	if store := openHistory(fds, f, cfg); store != nil {
		if err := lp.Session().AttachHistory(store); err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot read history:", err)
		}
		lp.AddShutdownHook(func() {
			if err := store.Close(); err != nil {
				logger.Println("cannot close history store:", err)
			}
		})
	}
	return lp, nil
}

func openHistory(fds [3]*os.File, f *prog.Flags, cfg *Config) hist.Store {
	db := f.DB
	if db == "" {
		db = cfg.DB
	}
	var store hist.Store
	var err error
	switch {
	case db != "":
		store, err = hist.NewBoltStore(db)
	case cfg.HistFile != "":
		store, err = hist.NewFileStore(cfg.HistFile)
	default:
		return nil
	}
	if err != nil {
		fmt.Fprintln(fds[2], "Warning: cannot open history store:", err)
		fmt.Fprintln(fds[2], "Continuing without persistent history.")
		return nil
	}
	return store
}
