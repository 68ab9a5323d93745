package buildinfo

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/fraglab/frag/pkg/prog/progtest"
)

func TestVersion(t *testing.T) {
	o := progtest.Run(t, Program, "", "-version")
	if want := Version + VersionSuffix + "\n"; o.Stdout != want {
		t.Errorf("stdout = %q, want %q", o.Stdout, want)
	}
}

func TestVersionJSON(t *testing.T) {
	o := progtest.Run(t, Program, "", "-version", "-json")
	want := fmt.Sprintf(`{"version":%q,"goversion":%q}`+"\n",
		Version+VersionSuffix, runtime.Version())
	if o.Stdout != want {
		t.Errorf("stdout = %q, want %q", o.Stdout, want)
	}
}

func TestNotSuitableWithoutVersionFlag(t *testing.T) {
	o := progtest.Run(t, Program, "")
	if o.Ret != 2 {
		t.Errorf("ret = %d, want 2", o.Ret)
	}
}
