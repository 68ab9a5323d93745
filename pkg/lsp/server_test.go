package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	lsp "github.com/sourcegraph/go-lsp"

	"github.com/fraglab/frag/pkg/eval"
)

type fakeParser struct{ err error }

func (p fakeParser) Parse(string, int) ([]eval.Declaration, string, error) {
	return nil, "", p.err
}

type fakeSource struct{ ledger, artifacts []string }

func (s fakeSource) LedgerNames() []string   { return s.ledger }
func (s fakeSource) ArtifactNames() []string { return s.artifacts }

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	bs, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bs
}

func TestCompletion(t *testing.T) {
	s := newServer(fakeParser{}, fakeSource{
		ledger:    []string{"foo", "foobar"},
		artifacts: []string{"frag0"},
	})
	uri := lsp.DocumentURI("file:///session")
	s.content[uri] = "1 + fo"

	got, err := s.completion(context.Background(), nil, marshal(t, lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     lsp.Position{Line: 0, Character: 6},
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	items := got.([]lsp.CompletionItem)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Label != "foo" || items[0].Kind != lsp.CIKVariable {
		t.Errorf("items[0] = %+v", items[0])
	}
	wantRange := lsp.Range{
		Start: lsp.Position{Line: 0, Character: 4},
		End:   lsp.Position{Line: 0, Character: 6},
	}
	if items[0].TextEdit.Range != wantRange {
		t.Errorf("replace range = %+v, want %+v", items[0].TextEdit.Range, wantRange)
	}
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		wantN int
	}{
		{"clean parse", nil, 0},
		{"blank input", eval.ErrBlankInput, 0},
		{"incomplete input", eval.ErrIncompleteInput, 0},
		{"parse error", errors.New("expected declaration"), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(fakeParser{err: tc.err}, fakeSource{})
			diags := s.diagnostics("some text")
			if len(diags) != tc.wantN {
				t.Errorf("got %d diagnostics, want %d", len(diags), tc.wantN)
			}
			if tc.wantN == 1 && diags[0].Message != tc.err.Error() {
				t.Errorf("message = %q", diags[0].Message)
			}
		})
	}
}

func TestDidChange_EmptyContentChanges(t *testing.T) {
	s := newServer(fakeParser{}, fakeSource{})
	_, err := s.didChange(context.Background(), nil, marshal(t, lsp.DidChangeTextDocumentParams{
		TextDocument: lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: "file:///session"},
		},
	}))
	if err != errInvalidParams {
		t.Errorf("err = %v, want invalid-params", err)
	}
}

func TestRoutingHandler_UnknownMethod(t *testing.T) {
	s := newServer(fakeParser{}, fakeSource{})
	_, err := noopCall(s, "textDocument/definition")
	if err != errMethodNotFound {
		t.Errorf("err = %v, want method-not-found", err)
	}
	if _, err := noopCall(s, "initialized"); err != nil {
		t.Errorf("initialized: %v", err)
	}
}

// noopCall routes a request with empty params through the method table.
func noopCall(s *server, name string) (any, error) {
	fn, ok := methodTable(s)[name]
	if !ok {
		return nil, errMethodNotFound
	}
	return fn(context.Background(), nil, json.RawMessage("{}"))
}

func methodTable(s *server) map[string]method {
	return map[string]method{
		"initialize":                      s.initialize,
		"textDocument/didClose":           noop,
		"initialized":                     noop,
		"workspace/didChangeWatchedFiles": noop,
	}
}

func TestPositionConversionRoundTrip(t *testing.T) {
	content := "ab\ncd\n"
	for idx := 0; idx <= len(content); idx++ {
		pos := lspPositionFromIdx(content, idx)
		if got := lspPositionToIdx(content, pos); got != idx {
			t.Errorf("idx %d -> %+v -> %d", idx, pos, got)
		}
	}
}
