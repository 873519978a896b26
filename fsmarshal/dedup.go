package fsmarshal

// Dedup tracks, within one marshalling session, which input paths have
// already been captured and under what stored name, so that a later
// argument naming the same path can be emitted as a hardlink instead of a
// second copy of the payload.
//
// The key is the caller's original (pre-strip) path, not the stored name:
// create(["./a", "./a"]) deduplicates, create(["./a", "a"]) does not,
// because the two arguments are textually distinct paths even though they
// resolve to the same file.
type Dedup struct {
	seen map[string]string
}

// NewDedup returns an empty Dedup.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]string)}
}

// Lookup returns the stored name a prior capture of originalName used, and
// whether one was found.
func (d *Dedup) Lookup(originalName string) (storedName string, ok bool) {
	storedName, ok = d.seen[originalName]
	return storedName, ok
}

// Record remembers that originalName was captured and stored under name.
// Only the first capture of a given path should be recorded; callers check
// Lookup first.
func (d *Dedup) Record(originalName, storedName string) {
	d.seen[originalName] = storedName
}
