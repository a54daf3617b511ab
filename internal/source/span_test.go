package source

import "testing"

func TestSpanEmptyAndLen(t *testing.T) {
	if !(Span{File: 1, Start: 5, End: 5}).Empty() {
		t.Fatalf("zero-width span must be empty")
	}
	s := Span{Start: 2, End: 9}
	if s.Empty() || s.Len() != 7 {
		t.Fatalf("span 2-9: empty=%v len=%d", s.Empty(), s.Len())
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 8 {
		t.Fatalf("cover: got %s", got)
	}

	inner := Span{File: 1, Start: 5, End: 6}
	if got := a.Cover(inner); got != a {
		t.Fatalf("covering a contained span must not change the span, got %s", got)
	}

	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("spans in different files must not combine, got %s", got)
	}
}

func TestSpanString(t *testing.T) {
	if got := (Span{File: 3, Start: 10, End: 14}).String(); got != "3:10-14" {
		t.Fatalf("got %q", got)
	}
}
