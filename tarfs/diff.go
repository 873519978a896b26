package tarfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gotar-project/gotar/archive"
	"github.com/gotar-project/gotar/ustar"
)

// Diff compares every entry in l against root on disk and writes at most
// one line per entry to w, in the original tool's checking order: a missing
// file is reported and nothing else is checked for it; otherwise size is
// checked before mtime, and a size mismatch is itself reported as "Mod
// time differs", the original tool's own misreport. This ordering and
// wording are preserved rather than fixed; see DiffStrict for the
// corrected behavior.
func Diff(w io.Writer, l *archive.List, root string) error {
	for _, e := range l.Entries {
		path := filepath.Join(root, e.Name)
		fi, err := os.Lstat(path)
		if os.IsNotExist(err) {
			if _, werr := fmt.Fprintf(w, "%s: does not exist\n", e.Name); werr != nil {
				return werr
			}
			continue
		}
		if err != nil {
			return err
		}

		if (e.HasPayload() && fi.Size() != e.Size) || fi.ModTime().Unix() != e.Mtime {
			if _, werr := fmt.Fprintf(w, "%s: Mod time differs\n", e.Name); werr != nil {
				return werr
			}
		}
	}
	return nil
}

// DiffStrict performs the same comparison as Diff but reports every
// discrepancy on an entry independently, rather than stopping at the
// first one: an entry can be reported for both size and mtime, and mode
// is checked as well.
func DiffStrict(w io.Writer, l *archive.List, root string) error {
	for _, e := range l.Entries {
		path := filepath.Join(root, e.Name)
		fi, err := os.Lstat(path)
		if os.IsNotExist(err) {
			if _, werr := fmt.Fprintf(w, "%s: does not exist\n", e.Name); werr != nil {
				return werr
			}
			continue
		}
		if err != nil {
			return err
		}

		if e.HasPayload() && fi.Size() != e.Size {
			if _, werr := fmt.Fprintf(w, "%s: Size differs\n", e.Name); werr != nil {
				return werr
			}
		}
		if fi.ModTime().Unix() != e.Mtime {
			if _, werr := fmt.Fprintf(w, "%s: Mod time differs\n", e.Name); werr != nil {
				return werr
			}
		}
		if int64(fi.Mode().Perm()) != (e.Mode & 0777) {
			if _, werr := fmt.Fprintf(w, "%s: Mode differs\n", e.Name); werr != nil {
				return werr
			}
		}
	}
	return nil
}

// PrintMetadata writes the full set of recorded fields for one entry, the
// verbose per-entry dump a caller can request alongside a diff.
func PrintMetadata(w io.Writer, e *archive.Entry) error {
	_, err := fmt.Fprintf(w, "name: %s\nmode: %o\nuid: %d\ngid: %d\nsize: %d\nmtime: %d\ntype: %c\nlinkname: %s\nowner: %s\ngroup: %s\nmajor: %d\nminor: %d\n",
		e.Name, e.Mode, e.UID, e.GID, e.Size, e.Mtime, typeflagOrDash(e.Typeflag), e.LinkName, e.Owner, e.Group, e.Major, e.Minor)
	return err
}

func typeflagOrDash(t byte) byte {
	if t == 0 {
		return ustar.TypeRegular
	}
	return t
}
