// Package fsmarshal marshals filesystem trees into USTAR headers and
// reconstructs filesystem trees from them. It owns hardlink deduplication
// (keyed on the caller's original, pre-strip input path) and the legacy
// device-number encoding used for character and block special files.
package fsmarshal
