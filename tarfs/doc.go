// Package tarfs provides read-only, display-oriented views over an
// archive.List: long-form listings and comparisons against the live
// filesystem.
package tarfs
