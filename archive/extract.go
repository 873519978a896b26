package archive

import (
	"fmt"
	"io"

	"github.com/gotar-project/gotar/fsmarshal"
	"github.com/gotar-project/gotar/ustar"
)

// Extract reconstructs entries from list beneath destDir. If names is
// empty every entry is extracted, in archive order; otherwise only
// entries whose Name appears in names are. f need only support positioned
// reads.
//
// A failure on one entry is reported through sink and does not stop the
// remaining entries from being extracted; the overall result is non-nil
// if any entry failed.
func Extract(f io.ReaderAt, list *List, destDir string, names []string, sink ustar.Sink) error {
	if sink == nil {
		sink = ustar.NopSink()
	}

	var want map[string]bool
	if len(names) > 0 {
		want = make(map[string]bool, len(names))
		for _, n := range names {
			want[n] = true
		}
	}

	var failed bool
	for _, e := range list.Entries {
		if want != nil && !want[e.Name] {
			continue
		}
		if err := fsmarshal.ExtractEntry(destDir, &e.Header, f, e.PayloadBegin(), e.Size, sink); err != nil {
			sink.Printf("%s: %v", e.Name, err)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("archive: one or more entries failed to extract")
	}
	return nil
}
