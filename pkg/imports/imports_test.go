package imports

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// A simple line renderer for tests: "local<-prefix.source", wildcards as
// "*<-prefix".
func testRender(e Entry) string {
	if e.Wildcard {
		return "*<-" + e.Prefix
	}
	return e.Local + "<-" + e.Prefix + "." + e.Source
}

func refs(names ...string) map[string]bool {
	m := make(map[string]bool)
	for _, name := range names {
		m[name] = true
	}
	return m
}

func TestUpdate_ShadowingReplacesInPlace(t *testing.T) {
	var lg Ledger
	lg.Update([]Entry{
		{Local: "a", Source: "a", Prefix: "w0"},
		{Local: "b", Source: "b", Prefix: "w0"},
	})
	lg.Update([]Entry{{Local: "a", Source: "a", Prefix: "w1"}})

	want := []Entry{
		{Local: "a", Source: "a", Prefix: "w1"},
		{Local: "b", Source: "b", Prefix: "w0"},
	}
	if diff := cmp.Diff(want, lg.Entries()); diff != "" {
		t.Errorf("entries after shadowing update (-want +got):\n%s", diff)
	}

	block := lg.PreviousImportBlock(refs("a"), testRender)
	if block != "a<-w1.a\n" {
		t.Errorf("preamble for {a} = %q, want only w1's binding", block)
	}
}

func TestUpdate_WildcardsAppendAdditively(t *testing.T) {
	var lg Ledger
	lg.Update([]Entry{{Prefix: "w0", Wildcard: true}})
	lg.Update([]Entry{{Prefix: "w1", Wildcard: true}})

	block := lg.PreviousImportBlock(refs(), testRender)
	if block != "*<-w0\n*<-w1\n" {
		t.Errorf("preamble = %q, want both wildcard entries", block)
	}
}

func TestPreviousImportBlock_ImplicitRetainedWhenUnreferenced(t *testing.T) {
	var lg Ledger
	lg.Update([]Entry{
		{Local: "ctx", Source: "ctx", Prefix: "w0", Implicit: true},
		{Local: "x", Source: "x", Prefix: "w1"},
	})

	block := lg.PreviousImportBlock(refs("x"), testRender)
	want := "ctx<-w0.ctx\nx<-w1.x\n"
	if block != want {
		t.Errorf("preamble = %q, want %q", block, want)
	}
}

func TestPreviousImportBlock_FiltersUnreferenced(t *testing.T) {
	var lg Ledger
	lg.Update([]Entry{
		{Local: "x", Source: "x", Prefix: "w0"},
		{Local: "y", Source: "y", Prefix: "w1"},
	})
	if block := lg.PreviousImportBlock(refs("y"), testRender); block != "y<-w1.y\n" {
		t.Errorf("preamble for {y} = %q, want y only", block)
	}
	if block := lg.PreviousImportBlock(refs(), testRender); block != "" {
		t.Errorf("preamble for {} = %q, want empty", block)
	}
}

func TestPreviousImportBlock_SkipsEmptyRenderings(t *testing.T) {
	var lg Ledger
	lg.Update([]Entry{
		{Local: "x", Source: "x", Prefix: "w0"},
		{Local: "fmt", Source: "fmt", Prefix: "fmt", External: true},
	})
	render := func(e Entry) string {
		if !e.External {
			return ""
		}
		return testRender(e)
	}
	if block := lg.PreviousImportBlock(refs("x", "fmt"), render); block != "fmt<-fmt.fmt\n" {
		t.Errorf("preamble = %q, want external entry only", block)
	}
}

func TestNames(t *testing.T) {
	var lg Ledger
	lg.Update([]Entry{
		{Local: "x", Source: "x", Prefix: "w0"},
		{Prefix: "bridge", Wildcard: true},
		{Local: "y", Source: "y", Prefix: "w1"},
	})
	want := []string{"x", "y"}
	if diff := cmp.Diff(want, lg.Names()); diff != "" {
		t.Errorf("Names() (-want +got):\n%s", diff)
	}
}
