package tarfs

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gotar-project/gotar/archive"
	"github.com/gotar-project/gotar/ustar"
)

// typeChar returns the ls-style leading character for a typeflag.
func typeChar(t byte) byte {
	switch t {
	case ustar.TypeDirectory:
		return 'd'
	case ustar.TypeSymlink:
		return 'l'
	case ustar.TypeChar:
		return 'c'
	case ustar.TypeBlock:
		return 'b'
	case ustar.TypeFifo:
		return 'p'
	default:
		return '-'
	}
}

// formatMode renders a permission string like "-rwxr-xr-x" for mode/type.
func formatMode(typeflag byte, mode int64) string {
	const bits = "rwxrwxrwx"
	b := make([]byte, 10)
	b[0] = typeChar(typeflag)
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			b[i+1] = bits[i]
		} else {
			b[i+1] = '-'
		}
	}
	return string(b)
}

// matchesFilter reports whether name passes the list filter: no filter
// names at all means everything passes.
func matchesFilter(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}

// sizeColumn renders the value List's size column shows for e: the decimal
// payload size for every type except character and block devices, which
// have no payload and instead show "major,minor".
func sizeColumn(e *archive.Entry) string {
	if e.Typeflag == ustar.TypeChar || e.Typeflag == ustar.TypeBlock {
		return fmt.Sprintf("%d,%d", e.Major, e.Minor)
	}
	return strconv.FormatInt(e.Size, 10)
}

// List writes a listing of the entries in l whose name matches one of
// filter (or every entry, if filter is empty) to w, walked in archive
// order. In names-only mode (verbose=false) each line is just the entry's
// name; in verbose mode each entry line carries permissions, owner/group,
// size and modification time, and the listing ends with a size-summary
// footer when at least two listed entries carry payload. The size column is right-aligned to the running
// maximum width seen so far in the walk, not the width of the whole
// listing: its width can grow as wider entries are encountered, so
// earlier lines may be narrower than later ones.
func List(w io.Writer, l *archive.List, filter []string, verbose bool) error {
	if !verbose {
		for _, e := range l.Entries {
			if !matchesFilter(e.Name, filter) {
				continue
			}
			if _, err := fmt.Fprintln(w, e.Name); err != nil {
				return err
			}
		}
		return nil
	}

	width := 0
	for _, e := range l.Entries {
		if !matchesFilter(e.Name, filter) {
			continue
		}
		size := sizeColumn(e)
		if n := len(size); n > width {
			width = n
		}

		link := ""
		if e.Typeflag == ustar.TypeSymlink || e.Typeflag == ustar.TypeHardlink {
			link = " -> " + e.LinkName
		}
		_, err := fmt.Fprintf(w, "%s %s/%s %*s %s %s%s\n",
			formatMode(e.Typeflag, e.Mode),
			e.Owner, e.Group,
			width, size,
			time.Unix(e.Mtime, 0).UTC().Format("2006-01-02 15:04"),
			e.Name, link,
		)
		if err != nil {
			return err
		}
	}
	return writeSizeSummary(w, l, filter)
}

// writeSizeSummary appends a one-line mean/stddev summary of payload sizes
// to a verbose listing. Nothing is written unless at least two listed
// entries carry payload.
func writeSizeSummary(w io.Writer, l *archive.List, filter []string) error {
	var sizes []float64
	for _, e := range l.Entries {
		if e.HasPayload() && matchesFilter(e.Name, filter) {
			sizes = append(sizes, float64(e.Size))
		}
	}
	if len(sizes) < 2 {
		return nil
	}
	mean, std := stat.MeanStdDev(sizes, nil)
	_, err := fmt.Fprintf(w, "-- %d files, mean size %.1f, stddev %.1f\n", len(sizes), mean, std)
	return err
}
