package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetAddAndLookup(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("pipe.p4ir", []byte("header eth_t {}\n"))
	if fs.Len() != 1 {
		t.Fatalf("len: got %d", fs.Len())
	}

	f := fs.Get(id)
	if f == nil || f.Path != "pipe.p4ir" {
		t.Fatalf("file not stored: %+v", f)
	}
	if f.Flags&FileVirtual == 0 {
		t.Fatalf("virtual files must carry the virtual flag")
	}

	byPath, ok := fs.GetByPath("pipe.p4ir")
	if !ok || byPath.ID != id {
		t.Fatalf("path lookup failed")
	}
	if fs.Get(FileID(99)) != nil {
		t.Fatalf("unknown id must resolve to nil")
	}
	if _, ok := fs.GetByPath("absent"); ok {
		t.Fatalf("unknown path must not resolve")
	}
}

func TestFileSetLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.p4ir")
	if err := os.WriteFile(path, []byte("control c {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "control c {}\n" {
		t.Fatalf("content mismatch: %q", f.Content)
	}
	if f.Flags&FileVirtual != 0 {
		t.Fatalf("disk files are not virtual")
	}

	if _, err := fs.Load(filepath.Join(dir, "missing.p4ir")); err == nil {
		t.Fatalf("loading a missing file must fail")
	}
}

func TestFileSetPosition(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("x", []byte("ab\ncdef\n\ng"))

	cases := []struct {
		offset uint32
		want   LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{1, LineCol{Line: 1, Col: 2}},
		{3, LineCol{Line: 2, Col: 1}},
		{6, LineCol{Line: 2, Col: 4}},
		{8, LineCol{Line: 3, Col: 1}},
		{9, LineCol{Line: 4, Col: 1}},
	}
	for _, tc := range cases {
		if got := fs.Position(id, tc.offset); got != tc.want {
			t.Fatalf("offset %d: got %+v, want %+v", tc.offset, got, tc.want)
		}
	}

	if got := fs.Position(FileID(42), 0); got != (LineCol{Line: 1, Col: 1}) {
		t.Fatalf("unknown file must fall back to 1:1, got %+v", got)
	}
}

func TestFileSetHashesContent(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a", []byte("same"))
	b := fs.AddVirtual("b", []byte("same"))
	c := fs.AddVirtual("c", []byte("different"))
	if fs.Get(a).Hash != fs.Get(b).Hash {
		t.Fatalf("identical content must hash identically")
	}
	if fs.Get(a).Hash == fs.Get(c).Hash {
		t.Fatalf("different content must hash differently")
	}
}
