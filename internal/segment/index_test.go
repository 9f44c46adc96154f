package segment

import (
	"testing"
)

func adjacent() []Segment {
	return []Segment{
		NewSegment(0, 100, "a"),
		NewSegment(100, 200, "b"),
	}
}

func TestIndexAdjacentSegments(t *testing.T) {
	idx := NewIndex(adjacent())
	if idx.Len() != 3 {
		t.Fatalf("expected 3 boundaries, got %d: %v", idx.Len(), idx.Boundaries())
	}
	if got := idx.BoundaryTimeBefore(150); got != 100 {
		t.Fatalf("before(150)=%d want 100", got)
	}
	if got := idx.BoundaryTimeAfter(50); got != 100 {
		t.Fatalf("after(50)=%d want 100", got)
	}
	b, ok := idx.BoundaryBetween(0, 200)
	if !ok || b.Time != 100 {
		t.Fatalf("between(0,200)=%v,%v want 100", b, ok)
	}
}

func TestSegmentStartReplacesPreviousEnd(t *testing.T) {
	idx := NewIndex(adjacent())
	b, ok := idx.BoundaryBetween(100, 101)
	if !ok {
		t.Fatalf("expected boundary at 100")
	}
	if b.Label != "b" {
		t.Fatalf("start of second segment should carry its label, got %q", b.Label)
	}
}

func TestEndDoesNotOverwriteCoincidentStart(t *testing.T) {
	idx := NewIndex([]Segment{NewSegment(50, 50, "point")})
	bs := idx.Boundaries()
	if len(bs) != 1 || !bs[0].Equal(Boundary{Time: 50, Label: "point"}) {
		t.Fatalf("unexpected boundaries %v", bs)
	}
}

func TestQueriesAreStrict(t *testing.T) {
	idx := NewIndex(adjacent())
	cases := []struct {
		name string
		got  int64
		want int64
	}{
		{"before first", idx.BoundaryTimeBefore(0), 0},
		{"before on boundary", idx.BoundaryTimeBefore(100), 0},
		{"before past end", idx.BoundaryTimeBefore(500), 200},
		{"after on boundary", idx.BoundaryTimeAfter(100), 200},
		{"after last", idx.BoundaryTimeAfter(200), Infinite},
		{"after negative", idx.BoundaryTimeAfter(-10), 0},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("%s: got %d want %d", c.name, c.got, c.want)
		}
	}
}

func TestBoundaryBetweenRanges(t *testing.T) {
	idx := NewIndex(adjacent())
	if _, ok := idx.BoundaryBetween(200, 100); ok {
		t.Fatalf("inverted range should yield nothing")
	}
	if _, ok := idx.BoundaryBetween(100, 100); ok {
		t.Fatalf("empty range should yield nothing")
	}
	if _, ok := idx.BoundaryBetween(10, 90); ok {
		t.Fatalf("no boundary inside (10,90)")
	}
	b, ok := idx.BoundaryBetween(0, 100)
	if !ok || b.Time != 0 {
		t.Fatalf("between(0,100)=%v,%v want 0", b, ok)
	}
	b, ok = idx.BoundaryBetween(150, 1000)
	if !ok || b.Time != 200 {
		t.Fatalf("between(150,1000)=%v,%v want 200", b, ok)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := NewIndexFor(nil)
	if idx.BoundaryTimeBefore(10) != 0 || idx.BoundaryTimeAfter(10) != Infinite {
		t.Fatalf("empty index should return sentinels")
	}
	if _, ok := idx.BoundaryBetween(0, 10); ok {
		t.Fatalf("empty index has no boundaries")
	}
}

func TestLargeIndex(t *testing.T) {
	segs := make([]Segment, 0, 10000)
	for i := int64(0); i < 10000; i++ {
		segs = append(segs, NewSegment(i*10, i*10+5, ""))
	}
	idx := NewIndex(segs)
	if idx.Len() != 20000 {
		t.Fatalf("expected 20000 boundaries, got %d", idx.Len())
	}
	if got := idx.BoundaryTimeBefore(50003); got != 50000 {
		t.Fatalf("before(50003)=%d", got)
	}
	if got := idx.BoundaryTimeAfter(50003); got != 50005 {
		t.Fatalf("after(50003)=%d", got)
	}
}

func TestSegmentationValidate(t *testing.T) {
	s := New("shots", adjacent(), "/media/v.mp4")
	if err := s.Validate(); err != nil {
		t.Fatalf("valid segmentation rejected: %v", err)
	}
	s.Segments = append(s.Segments, NewSegment(150, 300, ""))
	if err := s.Validate(); err == nil {
		t.Fatalf("overlap not detected")
	}
	s.Segments = []Segment{NewSegment(10, 5, "")}
	if err := s.Validate(); err == nil {
		t.Fatalf("inverted segment not detected")
	}
}

func TestSegmentationDescriptors(t *testing.T) {
	s := NewWithChannel("speech", nil, "/media/a.wav", 2)
	if s.Segments == nil {
		t.Fatalf("segments should be an empty slice, not nil")
	}
	s.AddMediaDescriptor(MediaDescriptor{MediaFilePath: "/media/b.wav", Channel: 1})
	if len(s.MediaDescriptors) != 2 || s.MediaDescriptors[0].Channel != 2 {
		t.Fatalf("unexpected descriptors %+v", s.MediaDescriptors)
	}
}

func TestRSelectionEqualIgnoresLabel(t *testing.T) {
	a := NewSegment(1, 2, "x")
	b := NewSegment(1, 2, "y")
	if !a.Equal(b.RSelection) {
		t.Fatalf("selections with same times should be equal")
	}
}
