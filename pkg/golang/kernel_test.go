package golang

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fraglab/frag/pkg/eval"
	"github.com/fraglab/frag/pkg/registry"
	"github.com/fraglab/frag/pkg/result"
	"github.com/fraglab/frag/pkg/wrap"
)

func newTestLoop(t *testing.T) (*eval.Loop, *registry.Registry) {
	t.Helper()
	var out bytes.Buffer
	k, err := NewKernel(Config{Stdout: &out, Stderr: &out})
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New(nil)
	lp := eval.NewLoop(eval.NewSession(reg), eval.LoopConfig{
		Parser:    k,
		Compiler:  k,
		Runtime:   k,
		Generator: wrap.NewGenerator("frag", wrap.FlatModule, Template()),
		Render:    Render,
	})
	return lp, reg
}

func TestKernel_BindingPersistsAcrossFragments(t *testing.T) {
	lp, _ := newTestLoop(t)
	ev, ok := lp.Do("x := 41").Value()
	if !ok {
		t.Fatal("binding fragment did not succeed")
	}
	if ev.Feedback != "defined x" {
		t.Errorf("feedback = %q, want %q", ev.Feedback, "defined x")
	}
	if ev.Value != 41 {
		t.Errorf("value = %v, want 41", ev.Value)
	}
	ev2 := lp.Do("x + 1").Must()
	if ev2.Value != 42 {
		t.Errorf("x + 1 = %v, want 42", ev2.Value)
	}
}

func TestKernel_FunctionDefinitionAndUse(t *testing.T) {
	lp, _ := newTestLoop(t)
	ev := lp.Do("func inc(n int) int { return n + 1 }").Must()
	if ev.Feedback != "defined inc" {
		t.Errorf("feedback = %q, want %q", ev.Feedback, "defined inc")
	}
	if ev.Value != nil {
		t.Errorf("definition fragment value = %v, want nil", ev.Value)
	}
	if lp.Do("r := inc(41)").Must().Value != 42 {
		t.Error("calling a previously defined function failed")
	}
}

func TestKernel_ImportReEmittedIntoLaterWrappers(t *testing.T) {
	lp, _ := newTestLoop(t)
	ev := lp.Do(`import "strings"`).Must()
	if ev.Feedback != "imported strings" {
		t.Errorf("feedback = %q, want %q", ev.Feedback, "imported strings")
	}
	if got := lp.Do(`u := strings.ToUpper("ab")`).Must().Value; got != "AB" {
		t.Errorf("value = %v, want AB", got)
	}
	bs, ok := lp.Session().Registry.LookupArtifact("frag1")
	if !ok {
		t.Fatal("second wrapper not registered")
	}
	if !strings.Contains(string(bs), `import "strings"`) {
		t.Errorf("wrapper does not re-emit the import:\n%s", bs)
	}
}

func TestKernel_RepeatedImportDoesNotRedeclare(t *testing.T) {
	lp, _ := newTestLoop(t)
	lp.Do(`import "strings"`).Must()
	if r := lp.Do(`import "strings"`); r.Kind() != result.Success {
		t.Fatalf("repeated import = %v (%v), want success", r.Kind(), r.Err())
	}
	if got := lp.Do(`u := strings.ToUpper("ab")`).Must().Value; got != "AB" {
		t.Errorf("value = %v, want AB", got)
	}
}

func TestKernel_StatementsRunInEntryBody(t *testing.T) {
	lp, _ := newTestLoop(t)
	ev := lp.Do("x := 1; x = x + 41; x").Must()
	if ev.Value != 42 {
		t.Errorf("value = %v, want 42", ev.Value)
	}
}

func TestKernel_ShadowingRebindsName(t *testing.T) {
	lp, _ := newTestLoop(t)
	lp.Do("v := 1")
	lp.Do(`v := "now a string"`)
	if got := lp.Do("v").Must().Value; got != "now a string" {
		t.Errorf("v = %v after rebinding", got)
	}
	names := lp.Session().LedgerNames()
	count := 0
	for _, n := range names {
		if n == "v" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ledger holds %d entries for v, want 1", count)
	}
}

func TestKernel_CompileErrorFailsFragment(t *testing.T) {
	lp, _ := newTestLoop(t)
	r := lp.Do("nosuchname + 1")
	if r.Kind() != result.Failure {
		t.Fatalf("Do = %v, want failure", r.Kind())
	}
	if !strings.Contains(r.Err().Error(), "nosuchname") {
		t.Errorf("err = %v, want mention of the undefined name", r.Err())
	}
	// The failed fragment still owned its line.
	if lp.Do("x := 1").Must().Wrapper != "frag1" {
		t.Error("wrapper identifier reused after a failed fragment")
	}
}

func TestKernel_PanicBecomesFault(t *testing.T) {
	lp, _ := newTestLoop(t)
	r := lp.Do(`panic("kaboom")`)
	if r.Kind() != result.Failure {
		t.Fatalf("Do = %v, want failure", r.Kind())
	}
	var f *eval.Fault
	if !errors.As(r.Err(), &f) {
		t.Fatalf("err = %v, want a fault", r.Err())
	}
	if !strings.Contains(f.Error(), "kaboom") {
		t.Errorf("fault message = %q, want the panic value", f.Error())
	}
}

func TestKernel_ExitThroughBridge(t *testing.T) {
	lp, _ := newTestLoop(t)
	if err := lp.Bootstrap(Bootstrap); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if r := lp.Do("exit(0)"); r.Kind() != result.Exit {
		t.Errorf("Do(exit(0)) = %v (%v), want exit", r.Kind(), r.Err())
	}
}

func TestKernel_InterruptCancelsInvocation(t *testing.T) {
	var out bytes.Buffer
	k, err := NewKernel(Config{Stdout: &out, Stderr: &out})
	if err != nil {
		t.Fatal(err)
	}
	intCh := make(chan struct{})
	installs := 0
	lp := eval.NewLoop(eval.NewSession(registry.New(nil)), eval.LoopConfig{
		Parser:    k,
		Compiler:  k,
		Runtime:   k,
		Generator: wrap.NewGenerator("frag", wrap.FlatModule, Template()),
		Render:    Render,
		Interrupt: func() (<-chan struct{}, func()) {
			// Only the first fragment gets the tripped channel.
			installs++
			if installs == 1 {
				return intCh, func() {}
			}
			return make(chan struct{}), func() {}
		},
	})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(intCh)
	}()
	r := lp.Do("for {}")
	if r.Kind() != result.Failure {
		t.Fatalf("Do = %v, want failure", r.Kind())
	}
	if !errors.Is(r.Err(), eval.ErrInterrupted) {
		t.Errorf("err = %v, want ErrInterrupted in the chain", r.Err())
	}
	if r.Err().Error() != "Interrupted!" {
		t.Errorf("message = %q, want Interrupted!", r.Err().Error())
	}
	// The session stays usable after the aborted fragment.
	if got := lp.Do("y := 2").Must().Value; got != 2 {
		t.Errorf("post-interrupt fragment = %v, want 2", got)
	}
}

func TestKernel_GenerationSwapInvalidatesBindings(t *testing.T) {
	lp, reg := newTestLoop(t)
	lp.Do("x := 1").Must()
	if !reg.SetSharedCompileExecuteMode(true) {
		t.Fatal("mode flip did not invalidate")
	}
	if r := lp.Do("x + 1"); r.Kind() != result.Failure {
		t.Errorf("stale binding resolved after invalidation: %v", r.Kind())
	}
	// The fresh interpreter accepts new fragments.
	if got := lp.Do("y := 2").Must().Value; got != 2 {
		t.Errorf("post-invalidation fragment = %v, want 2", got)
	}
}
