package bundle

import (
	"testing"

	"github.com/eamonnfaherty/codebundle/pkg/ignore"
	"go.uber.org/zap/zaptest"
)

func newTestFilter(t *testing.T, exts []string, lines ...string) *Filter {
	t.Helper()
	patterns := ignore.Compile(ignore.StaticRules(), lines, zaptest.NewLogger(t))
	return NewFilter(NewExtensionSet(exts...), patterns)
}

func TestDecideExtension(t *testing.T) {
	t.Parallel()

	f := newTestFilter(t, []string{"py", ".GO", "*.ts"})

	for _, p := range []string{"a.py", "pkg/main.go", "web/app.ts", "UPPER.PY"} {
		if d := f.Decide(p, false); !d.Include {
			t.Fatalf("%s must be included, got %s", p, d.Reason)
		}
	}

	d := f.Decide("notes.txt", false)
	if d.Include || d.Reason != ReasonExtensionDisallowed {
		t.Fatalf("notes.txt: got %+v", d)
	}

	d = f.Decide("README", false)
	if d.Include || d.Reason != ReasonExtensionDisallowed {
		t.Fatalf("README: got %+v", d)
	}
}

func TestDecideWellKnown(t *testing.T) {
	t.Parallel()

	f := newTestFilter(t, []string{"py"})
	for _, p := range []string{"Dockerfile", "deploy/Dockerfile.prod", "Makefile"} {
		if d := f.Decide(p, false); !d.Include {
			t.Fatalf("%s must be included, got %s", p, d.Reason)
		}
	}
}

func TestDecidePatternMatched(t *testing.T) {
	t.Parallel()

	f := newTestFilter(t, []string{"py", "js"}, "generated/")

	d := f.Decide("node_modules/pkg/index.js", false)
	if d.Include || d.Reason != ReasonPatternMatched || d.Pattern == nil {
		t.Fatalf("node_modules file: got %+v", d)
	}

	d = f.Decide("src/generated/api.py", false)
	if d.Include || d.Reason != ReasonPatternMatched || d.Pattern.Origin != ignore.OriginIgnoreFile {
		t.Fatalf("generated file: got %+v", d)
	}
}

func TestDecideDirectoriesAlwaysIncluded(t *testing.T) {
	t.Parallel()

	f := newTestFilter(t, []string{"py"})
	for _, p := range []string{"node_modules", ".git", "build"} {
		if d := f.Decide(p, true); !d.Include {
			t.Fatalf("directory %s must be included", p)
		}
	}
}

func TestDecideIsPure(t *testing.T) {
	t.Parallel()

	f := newTestFilter(t, []string{"py"}, "*.gen.py")
	for _, p := range []string{"a.py", "a.gen.py", "a.bin", "Dockerfile"} {
		first := f.Decide(p, false)
		second := f.Decide(p, false)
		if first != second {
			t.Fatalf("Decide(%q) changed between calls: %+v vs %+v", p, first, second)
		}
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"a.PY":           "py",
		"archive.tar.gz": "gz",
		"Makefile":       "",
		".bashrc":        "bashrc",
	}
	for name, want := range cases {
		if got := Extension(name); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", name, got, want)
		}
	}
}
