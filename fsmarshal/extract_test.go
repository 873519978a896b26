package fsmarshal_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/gotar-project/gotar/fsmarshal"
	"github.com/gotar-project/gotar/ustar"
)

func TestExtractEntryRegularFile(t *testing.T) {
	dest := t.TempDir()
	h := &ustar.Header{Name: "out.txt", Mode: 0644, Size: 5, Typeflag: ustar.TypeRegular}
	payload := bytes.NewReader([]byte("hello"))

	if err := fsmarshal.ExtractEntry(dest, h, payload, 0, 5, nil); err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadFile(filepath.Join(dest, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("extracted content = %q", got)
	}
}

func TestExtractEntrySymlinkRoundTrip(t *testing.T) {
	dest := t.TempDir()
	h := &ustar.Header{Name: "s", Typeflag: ustar.TypeSymlink, LinkName: "target.txt"}

	if err := fsmarshal.ExtractEntry(dest, h, nil, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	got, err := os.Readlink(filepath.Join(dest, "s"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "target.txt" {
		t.Errorf("readlink = %q, want target.txt", got)
	}
}

func TestExtractEntrySkipsExistingSpecialFile(t *testing.T) {
	dest := t.TempDir()
	existing := filepath.Join(dest, "s")
	if err := os.Symlink("original-target", existing); err != nil {
		t.Fatal(err)
	}

	h := &ustar.Header{Name: "s", Typeflag: ustar.TypeSymlink, LinkName: "new-target"}
	if err := fsmarshal.ExtractEntry(dest, h, nil, 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	got, err := os.Readlink(existing)
	if err != nil {
		t.Fatal(err)
	}
	if got != "original-target" {
		t.Errorf("existing symlink was replaced: readlink = %q", got)
	}
}

func TestExtractEntryHardlink(t *testing.T) {
	dest := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(dest, "orig.txt"), []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	h := &ustar.Header{Name: "link.txt", Typeflag: ustar.TypeHardlink, LinkName: "orig.txt"}
	if err := fsmarshal.ExtractEntry(dest, h, nil, 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	got, err := ioutil.ReadFile(filepath.Join(dest, "link.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("hardlink content = %q", got)
	}
}
