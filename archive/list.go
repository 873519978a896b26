package archive

import (
	"io"

	"github.com/gotar-project/gotar/ustar"
)

// Entry pairs a decoded header with its position in an archive and, while
// held in memory, the payload span it owns.
type Entry struct {
	ustar.Header
}

// PayloadBegin is the absolute offset of the first payload byte following
// this entry's header block.
func (e *Entry) PayloadBegin() int64 {
	return e.Begin + ustar.BlockSize
}

// PayloadEnd is the absolute offset one past this entry's padded payload.
func (e *Entry) PayloadEnd() int64 {
	return e.PayloadBegin() + ustar.PayloadSpan(e.Size)
}

// End is the absolute offset one past this entry's header and payload,
// i.e. where the next entry (or the terminator) begins.
func (e *Entry) End() int64 {
	if e.Typeflag == ustar.TypeRegular || e.Typeflag == ustar.TypeContig {
		return e.PayloadEnd()
	}
	return e.Begin + ustar.BlockSize
}

// HasPayload reports whether this entry's type carries file content
// blocks: only regular and contiguous entries do.
func (e *Entry) HasPayload() bool {
	return e.Typeflag == ustar.TypeRegular || e.Typeflag == ustar.TypeContig
}

// List is the in-memory, ordered view of an archive's entries plus the
// bookkeeping needed to append, update or remove without a full rewrite.
type List struct {
	Entries []*Entry

	// end is the absolute offset of the first terminator block, i.e. the
	// logical end of entry data.
	end int64
}

// End returns the offset of the terminator, i.e. the number of archive
// bytes actually occupied by entries.
func (l *List) End() int64 { return l.end }

// Find returns the most recently added entry whose Name equals name, or
// nil.
func (l *List) Find(name string) *Entry {
	for i := len(l.Entries) - 1; i >= 0; i-- {
		if l.Entries[i].Name == name {
			return l.Entries[i]
		}
	}
	return nil
}

// findByOriginal returns the entry captured from originalName in this
// session, or nil.
func (l *List) findByOriginal(originalName string) *Entry {
	if originalName == "" {
		return nil
	}
	for i := len(l.Entries) - 1; i >= 0; i-- {
		if l.Entries[i].OriginalName == originalName {
			return l.Entries[i]
		}
	}
	return nil
}

// Scan reads r, which must be positioned at offset 0, decoding the header
// block sequence until it encounters two consecutive zero blocks (the
// terminator) or EOF. Begin values and payload seeks are absolute offsets
// counted from 0. r must support Seek so payload blocks can be skipped
// without reading them; after a terminator, r is left at the next record
// boundary.
func Scan(r io.ReadSeeker, sink ustar.Sink) (*List, error) {
	if sink == nil {
		sink = ustar.NopSink()
	}
	l := &List{}

	block := make([]byte, ustar.BlockSize)
	offset := int64(0)

	for {
		n, err := io.ReadFull(r, block)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Includes io.ErrUnexpectedEOF: a short read before the
			// terminator is a failure, not a clean end of data.
			return nil, err
		}
		_ = n

		begin := offset
		offset += ustar.BlockSize

		if ustar.IsZeroBlock(block) {
			n2, err := io.ReadFull(r, block)
			if err == io.EOF {
				// A lone trailing zero block with nothing after it: not a
				// confirmed terminator, but there is no more data either.
				offset = begin
				break
			}
			if err != nil {
				return nil, err
			}
			_ = n2
			if ustar.IsZeroBlock(block) {
				// Confirmed terminator: stop here, at the offset of the
				// *first* zero block, and move r to the next record
				// boundary.
				offset = begin
				next := (begin + 2*ustar.BlockSize + ustar.RecordSize - 1) / ustar.RecordSize * ustar.RecordSize
				if _, err := r.Seek(next, io.SeekStart); err != nil {
					return nil, err
				}
				break
			}
			// The second block was a real header all along; fall through
			// and parse it without re-reading.
			begin = offset
			offset += ustar.BlockSize
		}

		h, err := ustar.ParseHeader(block)
		if err != nil {
			return nil, err
		}
		h.Begin = begin
		e := &Entry{Header: *h}
		sink.Printf("%s", e.Name)
		l.Entries = append(l.Entries, e)

		offset = e.End()
		if e.HasPayload() {
			if _, err := r.Seek(offset, io.SeekStart); err != nil {
				return nil, err
			}
		}
	}

	l.end = offset
	return l, nil
}
