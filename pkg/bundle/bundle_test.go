package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestBundleRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":     "print('a')\n",
		"b.txt":    "not code\n",
		"sub/c.py": "print('c')\n",
	})

	svc := New(Options{Root: root, Extensions: []string{"py"}, TempDir: t.TempDir()}, zaptest.NewLogger(t))
	result, err := svc.Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	defer os.Remove(result.ArchivePath)

	got := readArchive(t, result.ArchivePath)
	if len(got) != 2 || got["a.py"] != "print('a')\n" || got["sub/c.py"] != "print('c')\n" {
		t.Fatalf("archive = %v", got)
	}
	if result.FileCount != 2 || result.TotalSizeBytes != int64(len("print('a')\n")+len("print('c')\n")) {
		t.Fatalf("result = %+v", result)
	}

	data, err := os.ReadFile(result.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	if want := base64.StdEncoding.EncodeToString(sum[:]); result.Checksum != want {
		t.Fatalf("checksum = %s, want %s", result.Checksum, want)
	}
	if result.ArchiveSizeBytes != int64(len(data)) {
		t.Fatalf("ArchiveSizeBytes = %d, want %d", result.ArchiveSizeBytes, len(data))
	}
}

func TestBundleDeterministicChecksum(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 120; i++ {
		files[fmt.Sprintf("d%d/f%03d.go", i%5, i)] = strings.Repeat("line\n", i)
	}
	writeFiles(t, root, files)

	opts := Options{Root: root, Extensions: []string{"go"}, Workers: 4, BatchSize: 7, TempDir: t.TempDir()}
	first, err := New(opts, zaptest.NewLogger(t)).Bundle(context.Background())
	if err != nil {
		t.Fatalf("first Bundle: %v", err)
	}
	second, err := New(opts, zaptest.NewLogger(t)).Bundle(context.Background())
	if err != nil {
		t.Fatalf("second Bundle: %v", err)
	}
	if first.Checksum != second.Checksum {
		t.Fatalf("checksums differ: %s vs %s", first.Checksum, second.Checksum)
	}
	if first.ArchivePath == second.ArchivePath {
		t.Fatalf("each bundle must get its own archive file")
	}
}

func TestBundleSizeLimit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py": strings.Repeat("a", 600),
		"b.py": strings.Repeat("b", 600),
	})
	tmp := t.TempDir()

	_, err := New(Options{Root: root, Extensions: []string{"py"}, MaxBytes: 1000, TempDir: tmp}, zaptest.NewLogger(t)).
		Bundle(context.Background())
	if !errors.Is(err, ErrSizeLimitExceeded) {
		t.Fatalf("err = %v, want size limit", err)
	}

	left, _ := os.ReadDir(tmp)
	if len(left) != 0 {
		t.Fatalf("no archive must be left behind: %v", left)
	}

	result, err := New(Options{Root: root, Extensions: []string{"py"}, MaxBytes: 1200, TempDir: tmp}, zaptest.NewLogger(t)).
		Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle at limit: %v", err)
	}
	if result.TotalSizeBytes > 1200 {
		t.Fatalf("TotalSizeBytes = %d exceeds limit", result.TotalSizeBytes)
	}
}

func TestBundleMalformedIgnoreFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":        string([]byte{0x00, 0xff, 0xfe, 0x9c, '\n', 0x01}),
		"app.py":            "x = 1\n",
		"node_modules/m.py": "ignored\n",
	})

	result, err := New(Options{Root: root, Extensions: []string{"py"}, TempDir: t.TempDir()}, zaptest.NewLogger(t)).
		Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	got := readArchive(t, result.ArchivePath)
	if len(got) != 1 || got["app.py"] != "x = 1\n" {
		t.Fatalf("archive = %v", got)
	}
}

func TestBundleAppliesGitignore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":       "# local\n*.gen.py\nsecrets/\n",
		"app.py":           "x\n",
		"api.gen.py":       "y\n",
		"secrets/token.py": "z\n",
	})

	result, err := New(Options{Root: root, Extensions: []string{"py"}, TempDir: t.TempDir()}, zaptest.NewLogger(t)).
		Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	got := readArchive(t, result.ArchivePath)
	if len(got) != 1 || got["app.py"] != "x\n" {
		t.Fatalf("archive = %v", got)
	}
}

func TestBundleSubfolder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"top.py":           "top\n",
		"service/main.py":  "main\n",
		"service/lib/u.py": "u\n",
	})

	result, err := New(Options{Root: root, Subfolder: "service", Extensions: []string{"py"}, TempDir: t.TempDir()}, zaptest.NewLogger(t)).
		Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	got := readArchive(t, result.ArchivePath)
	if len(got) != 2 || got["main.py"] != "main\n" || got["lib/u.py"] != "u\n" {
		t.Fatalf("archive = %v", got)
	}
}

func TestBundleSubfolderKeepsProjectIgnoreRules(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":                 "service/generated/\n",
		"service/main.py":            "main\n",
		"service/generated/token.py": "secret\n",
	})

	result, err := New(Options{Root: root, Subfolder: "service", Extensions: []string{"py"}, TempDir: t.TempDir()}, zaptest.NewLogger(t)).
		Bundle(context.Background())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	defer os.Remove(result.ArchivePath)

	got := readArchive(t, result.ArchivePath)
	if len(got) != 1 || got["main.py"] != "main\n" {
		t.Fatalf("archive = %v, want only main.py", got)
	}
}

func TestBundleNoRoot(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Root: filepath.Join(t.TempDir(), "missing")}, zaptest.NewLogger(t)).Bundle(context.Background())
	if !errors.Is(err, ErrNoRoot) {
		t.Fatalf("err = %v, want ErrNoRoot", err)
	}
}

type recordingProgress struct {
	titles []string
}

func (p *recordingProgress) Run(ctx context.Context, title string, fn func(context.Context) error) error {
	p.titles = append(p.titles, title)
	return fn(ctx)
}

func TestBundleCollaborators(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":  "a\n",
		"x.bin": "b",
		"y.bin": "b",
		"z.exe": "c",
	})

	events := map[string]int{}
	progress := &recordingProgress{}
	svc := New(Options{Root: root, Extensions: []string{"py"}, TempDir: t.TempDir()}, zaptest.NewLogger(t),
		WithTelemetry(TelemetryFunc(func(count int, ext string) {
			events[ext] += count
		})),
		WithProgress(progress),
	)

	if _, err := svc.Bundle(context.Background()); err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if len(events) != 2 || events["bin"] != 2 || events["exe"] != 1 {
		t.Fatalf("events = %v", events)
	}
	if len(progress.titles) != 1 || !strings.HasPrefix(progress.titles[0], "Bundling ") {
		t.Fatalf("progress titles = %v", progress.titles)
	}
}

func TestScanDoesNotWriteArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "a", "b/c.py": "c"})
	tmp := t.TempDir()

	trav, err := New(Options{Root: root, Extensions: []string{"py"}, TempDir: tmp}, zaptest.NewLogger(t)).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(trav.Files) != 2 || trav.TotalBytes != 2 {
		t.Fatalf("traversal = %+v", trav)
	}
	left, _ := os.ReadDir(tmp)
	if len(left) != 0 {
		t.Fatalf("Scan must not create files: %v", left)
	}
}
