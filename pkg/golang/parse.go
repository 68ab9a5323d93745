package golang

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path"
	"strconv"
	"strings"

	"github.com/fraglab/frag/pkg/diag"
	"github.com/fraglab/frag/pkg/eval"
)

const (
	declHeader = "package repl\n\n"
	stmtHeader = "package repl\n\nfunc _() {\n"
	stmtFooter = "\n}"
)

// Parse classifies one fragment into declarations. The fragment is split
// into top-level chunks at bracket depth zero, and each chunk is parsed
// first as a file-level declaration and then as a statement. Top-level :=
// bindings are rewritten into var members so the wrapper stays a pure
// file-level unit; other statements run inside the entry point body. The
// display expression is the final chunk when it is a non-call expression,
// otherwise the last name the final chunk binds.
func (k *Kernel) Parse(text string, line int) ([]eval.Declaration, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", eval.ErrBlankInput
	}
	chunks, scanErrs := splitTop(text)
	for _, msg := range scanErrs {
		if strings.Contains(msg, "not terminated") {
			return nil, "", eval.ErrIncompleteInput
		}
	}
	var decls []eval.Declaration
	display := ""
	for i, chunk := range chunks {
		last := i == len(chunks)-1
		d, expr, err := classify(chunk, last)
		if err != nil {
			if errors.Is(err, eval.ErrIncompleteInput) {
				return nil, "", err
			}
			return nil, "", &diag.Error{Type: "parse error", Message: err.Error()}
		}
		if last {
			display = expr
		}
		if d.Code != "" || len(d.Refs) > 0 {
			decls = append(decls, d)
		}
	}
	stripSelfRefs(decls)
	return decls, display, nil
}

// splitTop splits source into top-level chunks at the semicolons (explicit
// or inserted) that the scanner reports at bracket depth zero. Scanner
// diagnostics are collected, not fatal; unterminated literals surface there.
func splitTop(src string) (chunks, scanErrs []string) {
	fset := token.NewFileSet()
	file := fset.AddFile("input", fset.Base(), len(src))
	var sc scanner.Scanner
	sc.Init(file, []byte(src), func(_ token.Position, msg string) {
		scanErrs = append(scanErrs, msg)
	}, 0)
	depth, start := 0, 0
	for {
		pos, tok, _ := sc.Scan()
		if tok == token.EOF {
			break
		}
		switch tok {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			depth--
		case token.SEMICOLON:
			if depth == 0 {
				off := file.Offset(pos)
				if c := strings.TrimSpace(src[start:off]); c != "" {
					chunks = append(chunks, c)
				}
				// An inserted semicolon at EOF is positioned one past the
				// last byte of the source.
				start = off + 1
				if start > len(src) {
					start = len(src)
				}
			}
		}
	}
	if c := strings.TrimSpace(src[start:]); c != "" {
		chunks = append(chunks, c)
	}
	return chunks, scanErrs
}

func classify(chunk string, last bool) (eval.Declaration, string, error) {
	fset := token.NewFileSet()
	file, declErr := parser.ParseFile(
		fset, "input", declHeader+chunk, parser.SkipObjectResolution)
	if declErr == nil && len(file.Decls) > 0 {
		return declChunk(chunk, file.Decls[0], last)
	}
	fset = token.NewFileSet()
	file, stmtErr := parser.ParseFile(
		fset, "input", stmtHeader+chunk+stmtFooter, parser.SkipObjectResolution)
	if stmtErr == nil {
		return stmtChunk(chunk, fset, file, last)
	}
	if isIncomplete(declErr, -1) || isIncomplete(stmtErr, len(stmtHeader)+len(chunk)) {
		return eval.Declaration{}, "", eval.ErrIncompleteInput
	}
	if looksDeclarative(chunk) {
		return eval.Declaration{}, "", declErr
	}
	return eval.Declaration{}, "", stmtErr
}

func declChunk(chunk string, d ast.Decl, last bool) (eval.Declaration, string, error) {
	decl := eval.Declaration{Code: chunk, Member: true, Refs: identRefs(d)}
	display := ""
	switch d := d.(type) {
	case *ast.FuncDecl:
		decl.Display = []eval.DisplayItem{
			{Kind: eval.Definition, Names: []string{d.Name.Name}}}
	case *ast.GenDecl:
		switch d.Tok {
		case token.IMPORT:
			var names []string
			for _, spec := range d.Specs {
				names = append(names, importLocal(spec.(*ast.ImportSpec)))
			}
			decl.Display = []eval.DisplayItem{{Kind: eval.Import, Names: names}}
		case token.VAR, token.CONST:
			names := specNames(d)
			decl.Display = []eval.DisplayItem{{Kind: eval.IdentityBinding, Names: names}}
			if last && len(names) > 0 {
				display = names[len(names)-1]
			}
		case token.TYPE:
			decl.Display = []eval.DisplayItem{{Kind: eval.Definition, Names: specNames(d)}}
		}
	}
	return decl, display, nil
}

func stmtChunk(chunk string, fset *token.FileSet, file *ast.File, last bool) (eval.Declaration, string, error) {
	fn := file.Decls[len(file.Decls)-1].(*ast.FuncDecl)
	if len(fn.Body.List) == 0 {
		return eval.Declaration{}, "", nil
	}
	st := fn.Body.List[0]
	decl := eval.Declaration{Code: chunk, Refs: identRefs(st)}
	switch st := st.(type) {
	case *ast.AssignStmt:
		if st.Tok == token.DEFINE {
			// A top-level := becomes a var member so the binding outlives
			// the entry point. Keeping the wrapper free of loose statements
			// at file level is what lets the interpreter parse it in file
			// mode; loading a member var of an existing name rebinds it.
			decl.Code = varForm(chunk, fset.Position(st.TokPos).Offset-len(stmtHeader))
			decl.Member = true
			names := lhsNames(st)
			decl.Display = []eval.DisplayItem{{Kind: eval.IdentityBinding, Names: names}}
			if last && len(names) > 0 {
				return decl, names[len(names)-1], nil
			}
		}
	case *ast.ExprStmt:
		if _, isCall := st.X.(*ast.CallExpr); last && !isCall {
			// Not emitted as a member; the entry point returns it. A
			// code-less declaration still carries the references, so prior
			// imports the expression needs are re-emitted. Calls stay
			// statements: without type information there is no way to tell
			// a value-returning call from a void or multi-valued one.
			return eval.Declaration{Refs: identRefs(st.X)}, chunk, nil
		}
	}
	return decl, "", nil
}

// varForm rewrites a short variable declaration into var form, substituting
// "=" for the := at the given chunk offset.
func varForm(chunk string, off int) string {
	return "var " + strings.TrimSpace(chunk[:off]) + " = " + strings.TrimSpace(chunk[off+2:])
}

// isIncomplete reports whether a parse error list indicates input that may
// become valid with more text: an unexpected EOF, an unterminated literal,
// or any error located past the user text in the synthetic closing brace.
func isIncomplete(err error, userEnd int) bool {
	var list scanner.ErrorList
	if !errors.As(err, &list) {
		return false
	}
	for _, e := range list {
		if strings.Contains(e.Msg, "found 'EOF'") ||
			strings.Contains(e.Msg, "not terminated") {
			return true
		}
		if userEnd >= 0 && e.Pos.Offset >= userEnd {
			return true
		}
	}
	return false
}

func looksDeclarative(chunk string) bool {
	fields := strings.Fields(chunk)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "func", "import", "type", "const", "var":
		return true
	}
	return false
}

// identRefs collects the identifiers a node references, descending only
// into the base of selector expressions so that field and method names are
// not mistaken for bindings.
func identRefs(root ast.Node) []string {
	seen := map[string]bool{}
	var refs []string
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		ast.Inspect(n, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.SelectorExpr:
				walk(n.X)
				return false
			case *ast.Ident:
				if n.Name != "_" && !seen[n.Name] {
					seen[n.Name] = true
					refs = append(refs, n.Name)
				}
			}
			return true
		})
	}
	walk(root)
	return refs
}

// stripSelfRefs removes from each declaration's reference set the names the
// fragment itself introduces, so only prior bindings drive preamble
// re-emission.
func stripSelfRefs(decls []eval.Declaration) {
	defined := map[string]bool{}
	for _, d := range decls {
		for _, item := range d.Display {
			for _, n := range item.Names {
				defined[n] = true
			}
		}
	}
	for i, d := range decls {
		var kept []string
		for _, r := range d.Refs {
			if !defined[r] {
				kept = append(kept, r)
			}
		}
		decls[i].Refs = kept
	}
}

func specNames(d *ast.GenDecl) []string {
	var names []string
	for _, spec := range d.Specs {
		switch spec := spec.(type) {
		case *ast.ValueSpec:
			for _, id := range spec.Names {
				if id.Name != "_" {
					names = append(names, id.Name)
				}
			}
		case *ast.TypeSpec:
			names = append(names, spec.Name.Name)
		}
	}
	return names
}

func lhsNames(st *ast.AssignStmt) []string {
	var names []string
	for _, lhs := range st.Lhs {
		if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" {
			names = append(names, id.Name)
		}
	}
	return names
}

func importLocal(spec *ast.ImportSpec) string {
	p, _ := strconv.Unquote(spec.Path.Value)
	if spec.Name != nil && spec.Name.Name != "_" && spec.Name.Name != "." {
		return spec.Name.Name
	}
	return path.Base(p)
}
