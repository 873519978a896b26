// Package tartest provides small test helpers for this repository's
// package tests. No test imports it at present.
package tartest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// RemoveAll wraps os.RemoveAll and fails the test on failure.
func RemoveAll(t testing.TB, path string) {
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

// Tree walks root and returns every regular file's path (relative to root)
// mapped to its contents, for comparing an extracted tree against the
// files that were originally archived.
func Tree(t testing.TB, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return out
}

// SortedKeys returns the keys of m in sorted order, for deterministic
// assertions over map-shaped test fixtures.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
