package archive

import (
	"fmt"

	"golang.org/x/xerrors"

	"github.com/gotar-project/gotar/ustar"
)

// Remove deletes the named entries from list and compacts f in place by
// sliding every retained entry's header and payload down to close the gap.
// Entries are visited in archive order; once any entry has been dropped,
// every subsequent retained entry is physically relocated, since its
// absolute offset has shifted.
//
// There is no temporary copy and no rollback: a crash mid-compaction can
// leave f with a retained entry's bytes only partially relocated.
func Remove(f File, list *List, names []string, sink ustar.Sink) error {
	if sink == nil {
		sink = ustar.NopSink()
	}

	remove := make(map[string]bool, len(names))
	for _, n := range names {
		remove[n] = true
	}
	matched := make(map[string]bool, len(names))

	kept := list.Entries[:0:0]
	cursor := int64(0)
	for _, e := range list.Entries {
		if remove[e.Name] {
			matched[e.Name] = true
			sink.Printf("%s", e.Name)
			continue
		}

		span := e.End() - e.Begin
		if e.Begin != cursor {
			buf := make([]byte, span)
			if _, err := f.ReadAt(buf, e.Begin); err != nil {
				return xerrors.Errorf("reading %s during compaction: %w", e.Name, err)
			}
			if _, err := f.WriteAt(buf, cursor); err != nil {
				return xerrors.Errorf("relocating %s during compaction: %w", e.Name, err)
			}
		}
		e.Begin = cursor
		cursor += span
		kept = append(kept, e)
	}

	list.Entries = kept
	list.end = cursor
	if err := WriteTerminator(f, cursor); err != nil {
		return err
	}

	// Report names that did not match any entry, but only after the
	// archive has already been validly compacted and re-terminated: an
	// unmatched name is a failure, but the archive is still left in a
	// consistent, fully rewritten state.
	var missing []string
	for _, n := range names {
		if !matched[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("archive: entries not found: %q", missing)
	}
	return nil
}
