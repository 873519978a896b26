package archive

import (
	"io"
	"os"

	"golang.org/x/xerrors"

	"github.com/gotar-project/gotar/fsmarshal"
	"github.com/gotar-project/gotar/ustar"
)

// File is the minimal descriptor surface the mutation engine needs:
// positioned reads and writes plus truncation, which *os.File satisfies
// directly. Every operation in this package runs against one such
// descriptor with no internal locking.
type File interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
}

// PrimeDedup seeds d with every entry in l that carries an OriginalName,
// so that a later Append in the same session can still hardlink against
// entries appended earlier in that session. Entries produced by Scan never
// contribute: OriginalName is never written to disk.
func (l *List) PrimeDedup(d *fsmarshal.Dedup) {
	for _, e := range l.Entries {
		if e.OriginalName != "" {
			d.Record(e.OriginalName, e.Name)
		}
	}
}

// WriteTerminator pads from offset end up to the next RecordSize boundary,
// and if that padding is shorter than two blocks, pads by a further full
// record, guaranteeing at least two trailing zero blocks. f is truncated to
// exactly the resulting length.
func WriteTerminator(f File, end int64) error {
	pad := ustar.RecordSize - end%ustar.RecordSize
	if pad < 2*ustar.BlockSize {
		pad += ustar.RecordSize
	}
	total := end + pad

	zero := make([]byte, pad)
	if _, err := f.WriteAt(zero, end); err != nil {
		return xerrors.Errorf("writing terminator: %w", err)
	}
	if err := f.Truncate(total); err != nil {
		return xerrors.Errorf("truncating after terminator: %w", err)
	}
	return nil
}

// writeCaptured writes one captured entry's header and, if present,
// payload at offset start, returning the resulting *Entry and the offset
// immediately following it.
func writeCaptured(f File, start int64, c *fsmarshal.Captured) (*Entry, int64, error) {
	block, err := c.Header.Marshal()
	if err != nil {
		return nil, 0, err
	}
	if _, err := f.WriteAt(block, start); err != nil {
		return nil, 0, xerrors.Errorf("writing header for %s: %w", c.Header.Name, err)
	}

	h := c.Header
	h.Begin = start
	e := &Entry{Header: h}

	if c.Path == "" {
		return e, e.End(), nil
	}

	src, err := os.Open(c.Path)
	if err != nil {
		return nil, 0, xerrors.Errorf("opening %s: %w", c.Path, err)
	}
	defer src.Close()

	off := e.PayloadBegin()
	buf := make([]byte, 64*1024)
	var copied int64
	for copied < h.Size {
		want := h.Size - copied
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, rerr := src.Read(buf[:want])
		if n > 0 {
			if _, werr := f.WriteAt(buf[:n], off); werr != nil {
				return nil, 0, xerrors.Errorf("writing payload for %s: %w", c.Header.Name, werr)
			}
			off += int64(n)
			copied += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, 0, xerrors.Errorf("reading %s: %w", c.Path, rerr)
		}
	}

	if padLen := e.PayloadEnd() - off; padLen > 0 {
		if _, err := f.WriteAt(make([]byte, padLen), off); err != nil {
			return nil, 0, xerrors.Errorf("padding payload for %s: %w", c.Header.Name, err)
		}
	}

	return e, e.End(), nil
}

// Append captures roots and writes them sequentially onto the end of list,
// rewriting the terminator. Entries whose OriginalName matches one already
// in list (this session or
// earlier in this same Append batch) are written as hardlinks instead of
// duplicate payloads.
func Append(f File, list *List, roots []string, dedup *fsmarshal.Dedup, sink ustar.Sink) error {
	if sink == nil {
		sink = ustar.NopSink()
	}
	if dedup == nil {
		dedup = fsmarshal.NewDedup()
		list.PrimeDedup(dedup)
	}

	captured, err := fsmarshal.Capture(roots, dedup, sink)
	if err != nil {
		return err
	}

	cursor := list.End()
	for _, c := range captured {
		e, next, err := writeCaptured(f, cursor, c)
		if err != nil {
			return err
		}
		list.Entries = append(list.Entries, e)
		cursor = next
	}
	list.end = cursor

	return WriteTerminator(f, list.end)
}

// CreateAtomic captures roots into a brand new archive written to f from
// offset 0: semantically an append onto an empty list. The caller is
// responsible for making the write atomic (e.g. via renameio), since this
// function only knows about f's contents.
func CreateAtomic(f File, roots []string, sink ustar.Sink) (*List, error) {
	list := &List{}
	dedup := fsmarshal.NewDedup()
	if err := Append(f, list, roots, dedup, sink); err != nil {
		return nil, err
	}
	return list, nil
}

// Update re-captures roots and, for each, either appends it fresh (no
// prior entry captured from that path in this session, or the on-disk
// file's mtime is strictly newer) or leaves the archive untouched. Because
// OriginalName is never persisted, every root not captured earlier in
// this same process is treated as having no prior entry, and is appended.
//
// A stat failure on one root is recorded and does not stop the remaining
// roots from being checked; the overall result is non-nil if any root
// failed to stat.
func Update(f File, list *List, roots []string, dedup *fsmarshal.Dedup, sink ustar.Sink) error {
	if sink == nil {
		sink = ustar.NopSink()
	}
	if dedup == nil {
		dedup = fsmarshal.NewDedup()
		list.PrimeDedup(dedup)
	}

	var stale []string
	var statErr error
	for _, root := range roots {
		fi, err := os.Lstat(root)
		if err != nil {
			statErr = xerrors.Errorf("stat %s: %w", root, err)
			continue
		}
		prior := list.findByOriginal(root)
		if prior == nil || fi.ModTime().Unix() > prior.Mtime {
			stale = append(stale, root)
		}
	}
	if len(stale) > 0 {
		if err := Append(f, list, stale, dedup, sink); err != nil {
			return err
		}
	}
	return statErr
}

// Free releases any resources held by list. The in-memory mutation engine
// holds none beyond the slice itself; Free exists so callers have a
// symmetric counterpart to Scan/CreateAtomic.
func (l *List) Free() {
	l.Entries = nil
	l.end = 0
}
