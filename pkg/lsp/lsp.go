// Package lsp implements a language server over a fragment session. It
// serves completion from the session's ledger and artifact names and
// publishes parse diagnostics as documents change.
package lsp

import (
	"context"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/fraglab/frag/pkg/eval"
	"github.com/fraglab/frag/pkg/golang"
	"github.com/fraglab/frag/pkg/prog"
	"github.com/fraglab/frag/pkg/registry"
)

// Program is the LSP subprogram.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags, _ []string) error {
	if !f.LSP {
		return prog.ErrNotSuitable
	}
	k, err := golang.NewKernel(golang.Config{Stdout: io.Discard, Stderr: io.Discard})
	if err != nil {
		return err
	}
	s := newServer(k, eval.NewSession(registry.New(nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(transport{fds[0], fds[1]}, jsonrpc2.VSCodeObjectCodec{}),
		handler(s))
	<-conn.DisconnectNotify()
	return nil
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
