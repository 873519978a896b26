// Package ustar implements the POSIX.1-1988 USTAR block codec: encoding
// and decoding of the fixed 512-byte tape-archive header block, octal
// numeric fields, and the self-referential checksum.
//
// It deliberately does not implement PAX extended headers or GNU long-name
// extensions: entries whose path does not fit the 100-byte name field are
// rejected rather than split or extended.
package ustar
