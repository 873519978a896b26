package tarfs_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gotar-project/gotar/archive"
	"github.com/gotar-project/gotar/tarfs"
)

func buildList(t *testing.T, dir string) (*archive.List, *os.File, func()) {
	t.Helper()
	path := filepath.Join(dir, "a.txt")
	if err := ioutil.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ioutil.TempFile("", "gotar-tarfs-")
	if err != nil {
		t.Fatal(err)
	}
	list, err := archive.CreateAtomic(f, []string{path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return list, f, func() {
		f.Close()
		os.Remove(f.Name())
	}
}

func TestListNamesOnly(t *testing.T) {
	dir := t.TempDir()
	list, f, cleanup := buildList(t, dir)
	defer cleanup()
	_ = f

	var buf bytes.Buffer
	if err := tarfs.List(&buf, list, nil, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a.txt") {
		t.Errorf("listing missing entry name: %q", buf.String())
	}
	if strings.Contains(buf.String(), "rwx") {
		t.Errorf("names-only listing unexpectedly verbose: %q", buf.String())
	}
}

func TestListFiltersByName(t *testing.T) {
	dir := t.TempDir()
	list, f, cleanup := buildList(t, dir)
	defer cleanup()
	_ = f
	want := list.Entries[0].Name

	var buf bytes.Buffer
	if err := tarfs.List(&buf, list, []string{want}, false); err != nil {
		t.Fatal(err)
	}
	got := strings.TrimRight(buf.String(), "\n")
	if got != want {
		t.Errorf("filtered listing = %q, want only %q", got, want)
	}

	buf.Reset()
	if err := tarfs.List(&buf, list, []string{"does-not-exist"}, false); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("listing with unmatched filter = %q, want empty", buf.String())
	}
}

func TestListVerboseIncludesMetadata(t *testing.T) {
	dir := t.TempDir()
	list, f, cleanup := buildList(t, dir)
	defer cleanup()
	_ = f

	var buf bytes.Buffer
	if err := tarfs.List(&buf, list, nil, true); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "gopher") && !strings.Contains(got, list.Entries[0].Owner) {
		t.Errorf("verbose listing missing owner: %q", got)
	}
	if !strings.Contains(got, "5") {
		t.Errorf("verbose listing missing size: %q", got)
	}
}

func TestDiffReportsMissingFile(t *testing.T) {
	dir := t.TempDir()
	list, f, cleanup := buildList(t, dir)
	defer cleanup()
	_ = f

	empty := t.TempDir()
	var buf bytes.Buffer
	if err := tarfs.Diff(&buf, list, empty); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "does not exist") {
		t.Errorf("expected missing-file report, got %q", buf.String())
	}
}

func TestDiffStrictReportsSizeAndMtimeIndependently(t *testing.T) {
	dir := t.TempDir()
	list, f, cleanup := buildList(t, dir)
	defer cleanup()
	_ = f

	path := filepath.Join(dir, "a.txt")
	if err := ioutil.WriteFile(path, []byte("hello world, much longer now"), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	// Stored names are the archived absolute paths minus their leading
	// "/", so they resolve against the filesystem root.
	var buf bytes.Buffer
	if err := tarfs.DiffStrict(&buf, list, "/"); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "Size differs") {
		t.Errorf("expected size mismatch reported, got %q", got)
	}
	if !strings.Contains(got, "Mod time differs") {
		t.Errorf("expected mtime mismatch reported, got %q", got)
	}
}

func TestPrintMetadata(t *testing.T) {
	dir := t.TempDir()
	list, f, cleanup := buildList(t, dir)
	defer cleanup()
	_ = f

	var buf bytes.Buffer
	if err := tarfs.PrintMetadata(&buf, list.Entries[0]); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "name: ") {
		t.Errorf("metadata dump missing name field: %q", buf.String())
	}
}
