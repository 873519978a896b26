package fsmarshal

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/gotar-project/gotar/ustar"
)

// Captured is one marshalled filesystem entry plus, for types that carry
// payload, the filesystem path to read the payload bytes from.
type Captured struct {
	Header ustar.Header

	// Path is empty for entries with no payload to copy (directories,
	// symlinks, hardlinks, devices, FIFOs) and otherwise the file to copy
	// Header.Size bytes from.
	Path string
}

// devEncode converts the host's major and minor device numbers into the
// header's separate Major and Minor fields. The legacy combined
// (major<<20)|minor encoding is applied only on extract (ExtractEntry).
func devEncode(major, minor uint32) (int64, int64) {
	return int64(major), int64(minor)
}

var (
	loginName  string
	loginOnce  bool
	groupCache = map[uint32]string{}
)

// ownerName returns the invoking process's own login name, cached after
// the first lookup. Every captured entry is stamped with the caller's
// identity, not the file's own uid: that is the archiver's user, not the
// previous owner of whatever tree it happens to be reading.
func ownerName() string {
	if loginOnce {
		return loginName
	}
	loginOnce = true
	loginName = "None"
	if u, err := user.Current(); err == nil {
		loginName = u.Username
	}
	return loginName
}

func groupName(gid uint32) string {
	if name, ok := groupCache[gid]; ok {
		return name
	}
	name := "None"
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
		name = g.Name
	}
	groupCache[gid] = name
	return name
}

// Capture marshals roots (and, for directories, everything beneath them)
// into a sequence of headers, in the order they should be appended to an
// archive.
//
// dedup is consulted and updated as entries are captured so that the same
// input path appearing twice (directly, or reached again through a
// directory walk) is emitted once as data and once as a hardlink.
func Capture(roots []string, dedup *Dedup, sink ustar.Sink) ([]*Captured, error) {
	if sink == nil {
		sink = ustar.NopSink()
	}
	var out []*Captured
	for _, root := range roots {
		stored := stripLeadingPrefix(root)
		if err := captureOne(root, stored, dedup, sink, &out); err != nil {
			return nil, xerrors.Errorf("capturing %s: %w", root, err)
		}
	}
	return out, nil
}

// stripLeadingPrefix removes exactly one leading "../", "./" or "/" from
// name, the longest of the three that matches, so a root argument's stored
// name never carries a path-traversal or absolute marker. OriginalName
// keeps the unstripped path the caller supplied.
func stripLeadingPrefix(name string) string {
	switch {
	case strings.HasPrefix(name, "../"):
		return strings.TrimPrefix(name, "../")
	case strings.HasPrefix(name, "./"):
		return strings.TrimPrefix(name, "./")
	case strings.HasPrefix(name, "/"):
		return strings.TrimPrefix(name, "/")
	default:
		return name
	}
}

// captureOne marshals the single file or directory at diskPath, storing it
// in the archive under storedName, and recurses into directories.
func captureOne(diskPath, storedName string, dedup *Dedup, sink ustar.Sink, out *[]*Captured) error {
	fi, err := os.Lstat(diskPath)
	if err != nil {
		return xerrors.Errorf("stat: %w", err)
	}

	// Hardlink substitution only ever applies to regular files and
	// symlinks. Directories, devices and FIFOs are never folded into a
	// hardlink even if the same diskPath is captured twice.
	dedupable := fi.Mode().IsRegular() || fi.Mode()&os.ModeSymlink != 0
	if existing, ok := dedup.Lookup(diskPath); ok && dedupable {
		h := baseHeader(fi, storedName)
		h.Typeflag = ustar.TypeHardlink
		h.LinkName = existing
		h.Size = 0
		h.OriginalName = diskPath
		sink.Printf("%s link to %s", storedName, existing)
		*out = append(*out, &Captured{Header: h})
		return nil
	}

	h := baseHeader(fi, storedName)
	h.OriginalName = diskPath

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(diskPath)
		if err != nil {
			return xerrors.Errorf("readlink: %w", err)
		}
		h.Typeflag = ustar.TypeSymlink
		h.LinkName = target
		h.Size = 0
		dedup.Record(diskPath, storedName)
		sink.Printf("%s -> %s", storedName, target)
		*out = append(*out, &Captured{Header: h})
		return nil

	case fi.IsDir():
		h.Typeflag = ustar.TypeDirectory
		h.Size = 0
		if !strings.HasSuffix(h.Name, "/") {
			h.Name += "/"
		}
		dedup.Record(diskPath, h.Name)
		sink.Printf("%s", h.Name)
		*out = append(*out, &Captured{Header: h})

		entries, err := os.ReadDir(diskPath)
		if err != nil {
			return xerrors.Errorf("readdir: %w", err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, child := range entries {
			childDisk := filepath.Join(diskPath, child.Name())
			childStored := strings.TrimSuffix(h.Name, "/") + "/" + child.Name()
			if err := captureOne(childDisk, childStored, dedup, sink, out); err != nil {
				return err
			}
		}
		return nil

	case fi.Mode()&os.ModeCharDevice != 0, fi.Mode()&os.ModeDevice != 0:
		sys, ok := fi.Sys().(*syscall.Stat_t)
		if !ok {
			return fmt.Errorf("fsmarshal: cannot determine device numbers for %s", diskPath)
		}
		major, minor := unix.Major(uint64(sys.Rdev)), unix.Minor(uint64(sys.Rdev))
		h.Major, h.Minor = devEncode(major, minor)
		if fi.Mode()&os.ModeCharDevice != 0 {
			h.Typeflag = ustar.TypeChar
		} else {
			h.Typeflag = ustar.TypeBlock
		}
		h.Size = 0
		dedup.Record(diskPath, storedName)
		sink.Printf("%s", storedName)
		*out = append(*out, &Captured{Header: h})
		return nil

	case fi.Mode()&os.ModeNamedPipe != 0:
		h.Typeflag = ustar.TypeFifo
		h.Size = 0
		dedup.Record(diskPath, storedName)
		sink.Printf("%s", storedName)
		*out = append(*out, &Captured{Header: h})
		return nil

	case fi.Mode().IsRegular():
		h.Typeflag = ustar.TypeRegular
		h.Size = fi.Size()
		dedup.Record(diskPath, storedName)
		sink.Printf("%s", storedName)
		*out = append(*out, &Captured{Header: h, Path: diskPath})
		return nil

	default:
		return fmt.Errorf("fsmarshal: %s: unsupported file type %v", diskPath, fi.Mode())
	}
}

func baseHeader(fi os.FileInfo, storedName string) ustar.Header {
	sys, _ := fi.Sys().(*syscall.Stat_t)
	var uid, gid uint32
	if sys != nil {
		uid, gid = sys.Uid, sys.Gid
	}
	return ustar.Header{
		Name:  storedName,
		Mode:  int64(fi.Mode().Perm()),
		UID:   int64(uid),
		GID:   int64(gid),
		Mtime: fi.ModTime().Unix(),
		Owner: ownerName(),
		Group: groupName(gid),
	}
}
