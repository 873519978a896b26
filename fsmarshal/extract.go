package fsmarshal

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/gotar-project/gotar/ustar"
)

// Payload is anything that can hand back a reader positioned at an entry's
// payload bytes; archive.Entry's owning archive satisfies this via
// io.ReaderAt plus the entry's own offsets.
type Payload interface {
	io.ReaderAt
}

// ExtractEntry reconstructs one archive entry beneath destDir. payload is
// only read for regular and contiguous entries; payloadOff/payloadLen
// give the span to copy.
//
// Special files (symlinks, hardlinks, devices, FIFOs) that already exist
// at the target path are left untouched rather than replaced; regular
// files are always truncated and overwritten.
func ExtractEntry(destDir string, h *ustar.Header, payload Payload, payloadOff, payloadLen int64, sink ustar.Sink) error {
	if sink == nil {
		sink = ustar.NopSink()
	}
	target := filepath.Join(destDir, h.Name)

	switch h.Typeflag {
	case ustar.TypeDirectory:
		sink.Printf("%s", h.Name)
		if err := os.MkdirAll(target, os.FileMode(h.Mode)|0700); err != nil {
			return xerrors.Errorf("mkdir %s: %w", target, err)
		}
		return os.Chmod(target, os.FileMode(h.Mode))

	case ustar.TypeSymlink:
		sink.Printf("%s -> %s", h.Name, h.LinkName)
		if err := os.Symlink(h.LinkName, target); err != nil && !os.IsExist(err) {
			return xerrors.Errorf("symlink %s: %w", target, err)
		}
		return nil

	case ustar.TypeHardlink:
		sink.Printf("%s link to %s", h.Name, h.LinkName)
		linkTarget := filepath.Join(destDir, h.LinkName)
		if err := os.Link(linkTarget, target); err != nil && !os.IsExist(err) {
			return xerrors.Errorf("link %s -> %s: %w", target, linkTarget, err)
		}
		return nil

	case ustar.TypeChar, ustar.TypeBlock:
		sink.Printf("%s", h.Name)
		mode := uint32(h.Mode)
		if h.Typeflag == ustar.TypeChar {
			mode |= unix.S_IFCHR
		} else {
			mode |= unix.S_IFBLK
		}
		// Legacy combined device number, not the platform's native
		// makedev encoding.
		rdev := int(h.Major)<<20 | int(h.Minor)
		if err := unix.Mknod(target, mode, rdev); err != nil && !os.IsExist(err) {
			return xerrors.Errorf("mknod %s: %w", target, err)
		}
		return nil

	case ustar.TypeFifo:
		sink.Printf("%s", h.Name)
		if err := unix.Mkfifo(target, uint32(h.Mode)); err != nil && !os.IsExist(err) {
			return xerrors.Errorf("mkfifo %s: %w", target, err)
		}
		return nil

	case ustar.TypeRegular, ustar.TypeContig:
		sink.Printf("%s", h.Name)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return xerrors.Errorf("mkdir %s: %w", filepath.Dir(target), err)
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(h.Mode)|0600)
		if err != nil {
			return xerrors.Errorf("create %s: %w", target, err)
		}
		defer f.Close()
		if _, err := io.Copy(f, io.NewSectionReader(payload, payloadOff, payloadLen)); err != nil {
			return xerrors.Errorf("write %s: %w", target, err)
		}
		return f.Chmod(os.FileMode(h.Mode))

	default:
		return xerrors.Errorf("fsmarshal: %s: unsupported typeflag %q", h.Name, h.Typeflag)
	}
}
