package segment

import (
	"math"

	"github.com/google/btree"
)

// Infinite is returned by BoundaryTimeAfter when no later boundary exists.
const Infinite int64 = math.MaxInt64

// Boundary is a time point marking the start or end of a segment.
//
// Boundaries are ordered by Time only while Equal also compares Label, so two
// boundaries at the same time with different labels occupy one slot in an
// Index. NewIndex relies on that to let a segment start replace the end
// marker of the segment before it.
type Boundary struct {
	Time  int64  `json:"time"`
	Label string `json:"label"`
}

// Equal compares both time and label.
func (b Boundary) Equal(o Boundary) bool {
	return b.Time == o.Time && b.Label == o.Label
}

// Less orders boundaries by time.
func (b Boundary) Less(o Boundary) bool {
	return b.Time < o.Time
}

const indexDegree = 16

// Index is an ordered set of boundaries built from a segmentation.
// It is not safe for concurrent mutation; rebuild it when the segmentation
// changes.
type Index struct {
	tree *btree.BTreeG[Boundary]
}

// NewIndex builds the boundary set of segs.
func NewIndex(segs []Segment) *Index {
	idx := &Index{tree: btree.NewG[Boundary](indexDegree, Boundary.Less)}
	for _, s := range segs {
		begin := Boundary{Time: s.BeginTime, Label: s.Label}
		idx.tree.Delete(begin)
		idx.tree.ReplaceOrInsert(begin)
		end := Boundary{Time: s.EndTime}
		if !idx.tree.Has(end) {
			idx.tree.ReplaceOrInsert(end)
		}
	}
	return idx
}

// NewIndexFor builds the index of a segmentation.
func NewIndexFor(s *Segmentation) *Index {
	if s == nil {
		return NewIndex(nil)
	}
	return NewIndex(s.Segments)
}

// Len returns the number of boundaries.
func (x *Index) Len() int { return x.tree.Len() }

// Boundaries returns all boundaries in ascending time order.
func (x *Index) Boundaries() []Boundary {
	out := make([]Boundary, 0, x.tree.Len())
	x.tree.Ascend(func(b Boundary) bool {
		out = append(out, b)
		return true
	})
	return out
}

// lower returns the greatest boundary strictly before t.
func (x *Index) lower(t int64) (Boundary, bool) {
	var (
		found Boundary
		ok    bool
	)
	x.tree.DescendLessOrEqual(Boundary{Time: t}, func(b Boundary) bool {
		if b.Time == t {
			return true
		}
		found, ok = b, true
		return false
	})
	return found, ok
}

// BoundaryTimeBefore returns the time of the greatest boundary strictly
// before t, or 0.
func (x *Index) BoundaryTimeBefore(t int64) int64 {
	if b, ok := x.lower(t); ok {
		return b.Time
	}
	return 0
}

// BoundaryTimeAfter returns the time of the least boundary strictly after t,
// or Infinite.
func (x *Index) BoundaryTimeAfter(t int64) int64 {
	res := Infinite
	x.tree.AscendGreaterOrEqual(Boundary{Time: t}, func(b Boundary) bool {
		if b.Time == t {
			return true
		}
		res = b.Time
		return false
	})
	return res
}

// BoundaryBetween returns the last boundary with begin <= time < end.
func (x *Index) BoundaryBetween(begin, end int64) (Boundary, bool) {
	if begin >= end {
		return Boundary{}, false
	}
	b, ok := x.lower(end)
	if !ok || b.Time < begin {
		return Boundary{}, false
	}
	return b, true
}
