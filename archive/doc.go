// Package archive implements the in-place archive mutation engine: scanning
// an existing USTAR archive into an ordered entry list, appending new
// entries, updating stale ones, removing entries by compacting the file in
// place, and maintaining the two-zero-block terminator and record padding.
//
// All operations in this package are synchronous and operate against a
// single seekable descriptor; there is no internal locking or concurrency.
package archive
