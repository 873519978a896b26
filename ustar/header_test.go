package ustar

import (
	"io/ioutil"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orcaman/writerseeker"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name string
		h    *Header
	}{
		{
			name: "regular file",
			h: &Header{
				Name:     "a.txt",
				Mode:     0644,
				UID:      1000,
				GID:      1000,
				Size:     5,
				Mtime:    1234567890,
				Typeflag: TypeRegular,
				Owner:    "gopher",
				Group:    "gopher",
			},
		},
		{
			name: "directory",
			h: &Header{
				Name:     "sub/",
				Mode:     0755,
				Typeflag: TypeDirectory,
			},
		},
		{
			name: "device",
			h: &Header{
				Name:     "dev/null",
				Mode:     0666,
				Typeflag: TypeChar,
				Major:    1,
				Minor:    3,
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			block, err := tt.h.Marshal()
			if err != nil {
				t.Fatal(err)
			}
			if len(block) != BlockSize {
				t.Fatalf("Marshal returned %d bytes, want %d", len(block), BlockSize)
			}
			got, err := ParseHeader(block)
			if err != nil {
				t.Fatal(err)
			}
			// OriginalName is derived only during capture and never written;
			// a freshly parsed header never has one.
			want := *tt.h
			want.OriginalName = ""
			if diff := cmp.Diff(&want, got, cmp.Comparer(func(a, b int64) bool { return a == b })); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChecksumClosure(t *testing.T) {
	h := &Header{Name: "x", Mode: 0600, Size: 42, Mtime: 99, Typeflag: TypeRegular}
	block, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	stored := parseOctal(block[offCheck : offCheck+lenCheck])
	recomputed := checksum(block, 500)
	if stored != recomputed {
		t.Fatalf("checksum closure violated: stored %o, recomputed %o", stored, recomputed)
	}
}

func TestChecksumAcceptsBothVariants(t *testing.T) {
	h := &Header{Name: "x", Mode: 0600, Size: 1, Mtime: 1, Typeflag: TypeRegular}
	block, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	// The 500-byte variant (what we emit) must parse.
	if _, err := ParseHeader(block); err != nil {
		t.Fatalf("500-byte checksum variant rejected: %v", err)
	}

	// A producer that summed all 512 bytes (with checksum field blanked)
	// must also be accepted on read.
	block512 := make([]byte, BlockSize)
	copy(block512, block)
	sum512 := checksum(block512, BlockSize)
	putOctal(block512[offCheck:offCheck+6], sum512, 6)
	block512[offCheck+6] = 0
	block512[offCheck+7] = ' '
	if _, err := ParseHeader(block512); err != nil {
		t.Fatalf("512-byte checksum variant rejected: %v", err)
	}
}

func TestOctalEncoding(t *testing.T) {
	for _, width := range []int{7, 8, 11} {
		max := int64(1)
		for i := 0; i < width-1; i++ {
			max *= 8
		}
		for _, v := range []int64{0, 1, 7, 63, max - 1} {
			buf := make([]byte, width+1)
			putOctal(buf, v, width)
			got := parseOctal(buf)
			if got != v {
				t.Errorf("width %d: encode/decode %d got %d", width, v, got)
			}
		}
	}
}

func TestIsZeroBlock(t *testing.T) {
	zero := make([]byte, BlockSize)
	if !IsZeroBlock(zero) {
		t.Error("all-zero block not recognized")
	}
	zero[511] = 1
	if IsZeroBlock(zero) {
		t.Error("non-zero block recognized as zero")
	}
}

func TestNameTooLongFails(t *testing.T) {
	long := make([]byte, lenName+1)
	for i := range long {
		long[i] = 'a'
	}
	h := &Header{Name: string(long), Typeflag: TypeRegular}
	if _, err := h.Marshal(); err == nil {
		t.Fatal("expected error for over-long name")
	}
}

// TestMarshalIntoWriterSeeker exercises Marshal against an in-memory
// io.WriteSeeker rather than a real file, the way a caller assembling
// headers before knowing the final archive destination would.
func TestMarshalIntoWriterSeeker(t *testing.T) {
	var ws writerseeker.WriterSeeker

	h := &Header{Name: "memory.txt", Mode: 0640, Size: 3, Mtime: 1, Typeflag: TypeRegular}
	block, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Write(block); err != nil {
		t.Fatal(err)
	}

	got, err := ioutil.ReadAll(ws.Reader())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != BlockSize {
		t.Fatalf("read back %d bytes, want %d", len(got), BlockSize)
	}
	parsed, err := ParseHeader(got)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Name != h.Name {
		t.Errorf("name = %q, want %q", parsed.Name, h.Name)
	}
}
