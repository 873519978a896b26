// Command gotar is a partial POSIX USTAR archiver: create, append, list,
// extract, diff, update and remove entries in a tape-archive file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/xerrors"

	"github.com/gotar-project/gotar/archive"
	"github.com/gotar-project/gotar/fsmarshal"
	"github.com/gotar-project/gotar/internal/oninterrupt"
	"github.com/gotar-project/gotar/tarfs"
	"github.com/gotar-project/gotar/ustar"

	"github.com/google/renameio"
)

var (
	debug = flag.Bool("debug", false, "format error messages with additional detail")

	modeCreate  = flag.Bool("c", false, "create a new archive")
	modeAppend  = flag.Bool("a", false, "append files to an existing archive")
	modeDiff    = flag.Bool("d", false, "compare the archive against the filesystem")
	modeList    = flag.Bool("l", false, "list the archive's contents")
	modeRemove  = flag.Bool("r", false, "remove entries from the archive")
	modeUpdate  = flag.Bool("u", false, "append files newer than their archived copy")
	modeExtract = flag.Bool("x", false, "extract the archive's contents")

	archivePath = flag.String("f", "", "path to the archive file")
	destDir     = flag.String("C", ".", "directory to extract into, or to diff against")

	verbosity verbosityFlag
)

// verbosityFlag counts repetitions of -v: none is ustar.Silent, one is
// ustar.Names, two or more is ustar.Full.
type verbosityFlag int

func (v *verbosityFlag) String() string { return "" }

func (v *verbosityFlag) IsBoolFlag() bool { return true }

func (v *verbosityFlag) Set(string) error {
	*v++
	return nil
}

func (v verbosityFlag) level() ustar.Verbosity {
	switch {
	case v >= 2:
		return ustar.Full
	case v == 1:
		return ustar.Names
	default:
		return ustar.Silent
	}
}

func init() {
	flag.Var(&verbosity, "v", "increase verbosity (repeatable)")
}

func sink() ustar.Sink {
	if verbosity.level() == ustar.Silent {
		return ustar.NopSink()
	}
	return log.New(os.Stdout, "", 0)
}

func countModes() int {
	n := 0
	for _, m := range []*bool{modeCreate, modeAppend, modeDiff, modeList, modeRemove, modeUpdate, modeExtract} {
		if *m {
			n++
		}
	}
	return n
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: gotar {-c|-a|-d|-l|-r|-u|-x} -f archive [-C dir] [-v] [file ...]\n")
	flag.PrintDefaults()
}

func funcmain() error {
	flag.Parse()

	if *archivePath == "" || countModes() != 1 {
		usage()
		os.Exit(2)
	}

	args := flag.Args()
	s := sink()

	switch {
	case *modeCreate:
		return doCreate(args, s)
	case *modeAppend:
		return doMutate(archive.Append, args, s)
	case *modeUpdate:
		return doMutate(archive.Update, args, s)
	case *modeRemove:
		return doRemove(args, s)
	case *modeList:
		return doList(args)
	case *modeExtract:
		return doExtract(args, s)
	case *modeDiff:
		return doDiff()
	}
	return nil
}

func doCreate(args []string, s ustar.Sink) error {
	t, err := renameio.TempFile("", *archivePath)
	if err != nil {
		return xerrors.Errorf("creating temp file: %w", err)
	}
	defer t.Cleanup()

	if _, err := archive.CreateAtomic(t, args, s); err != nil {
		return xerrors.Errorf("create: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("replacing %s: %w", *archivePath, err)
	}
	return nil
}

type mutator func(archive.File, *archive.List, []string, *fsmarshal.Dedup, ustar.Sink) error

func doMutate(op mutator, args []string, s ustar.Sink) error {
	f, err := os.OpenFile(*archivePath, os.O_RDWR, 0)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", *archivePath, err)
	}
	defer f.Close()

	list, err := archive.Scan(f, nil)
	if err != nil {
		return xerrors.Errorf("scanning %s: %w", *archivePath, err)
	}

	oninterrupt.Register(func() {
		fmt.Fprintf(os.Stderr, "interrupted: %s may now be in an inconsistent state\n", *archivePath)
	})

	return op(f, list, args, nil, s)
}

func doRemove(args []string, s ustar.Sink) error {
	f, err := os.OpenFile(*archivePath, os.O_RDWR, 0)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", *archivePath, err)
	}
	defer f.Close()

	list, err := archive.Scan(f, nil)
	if err != nil {
		return xerrors.Errorf("scanning %s: %w", *archivePath, err)
	}

	oninterrupt.Register(func() {
		fmt.Fprintf(os.Stderr, "interrupted: %s may now be in an inconsistent state\n", *archivePath)
	})

	return archive.Remove(f, list, args, s)
}

func doList(args []string) error {
	f, err := os.Open(*archivePath)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", *archivePath, err)
	}
	defer f.Close()

	list, err := archive.Scan(f, nil)
	if err != nil {
		return xerrors.Errorf("scanning %s: %w", *archivePath, err)
	}
	return tarfs.List(os.Stdout, list, args, verbosity.level() == ustar.Full)
}

func doExtract(args []string, s ustar.Sink) error {
	f, err := os.Open(*archivePath)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", *archivePath, err)
	}
	defer f.Close()

	list, err := archive.Scan(f, nil)
	if err != nil {
		return xerrors.Errorf("scanning %s: %w", *archivePath, err)
	}
	return archive.Extract(f, list, *destDir, args, s)
}

func doDiff() error {
	f, err := os.Open(*archivePath)
	if err != nil {
		return xerrors.Errorf("opening %s: %w", *archivePath, err)
	}
	defer f.Close()

	list, err := archive.Scan(f, nil)
	if err != nil {
		return xerrors.Errorf("scanning %s: %w", *archivePath, err)
	}
	if err := tarfs.Diff(os.Stdout, list, *destDir); err != nil {
		return err
	}

	if verbosity.level() == ustar.Full {
		for _, e := range list.Entries {
			if err := tarfs.PrintMetadata(os.Stdout, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		if *debug {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
