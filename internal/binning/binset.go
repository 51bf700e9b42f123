// Package binning implements BinSet: an ordered list of axis-aligned
// hyperrectangles over named event variables, and the point-in-bin
// lookup used both to build histograms and to drive the DialCache's
// apply-condition geometry.
package binning

import (
	"fmt"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

// Edge is a half-open interval [Low, High) on one named axis.
type Edge struct {
	Variable string
	Low      float64
	High     float64
}

// Contains reports whether x falls in [Low, High).
func (e Edge) Contains(x float64) bool {
	return x >= e.Low && x < e.High
}

// Bin is a conjunction of Edges; a point lies in the bin iff every edge
// constraint holds.
type Bin struct {
	Edges []Edge
}

// Contains reports whether the given named values satisfy every edge of
// the bin. A variable with no edge on this bin is unconstrained.
func (b Bin) Contains(values map[string]float64) bool {
	for _, e := range b.Edges {
		x, ok := values[e.Variable]
		if !ok || !e.Contains(x) {
			return false
		}
	}
	return true
}

// sharedAxes reports whether two bins constrain any of the same
// variables, and if so returns those variable names.
func sharedAxes(a, b Bin) []string {
	bVars := make(map[string]bool, len(b.Edges))
	for _, e := range b.Edges {
		bVars[e.Variable] = true
	}
	var shared []string
	for _, e := range a.Edges {
		if bVars[e.Variable] {
			shared = append(shared, e.Variable)
		}
	}
	return shared
}

// overlaps reports whether two bins' intervals intersect on every axis
// they share; bins that share no axis are, by definition, not disjoint
// violations (they simply don't constrain each other there) so only
// shared axes are checked, and ALL of them must overlap for the bins
// themselves to overlap.
func overlaps(a, b Bin) (bool, string) {
	shared := sharedAxes(a, b)
	if len(shared) == 0 {
		return false, ""
	}
	for _, axis := range shared {
		ea := edgeFor(a, axis)
		eb := edgeFor(b, axis)
		if ea.High <= eb.Low || eb.High <= ea.Low {
			return false, axis
		}
	}
	return true, shared[0]
}

func edgeFor(b Bin, axis string) Edge {
	for _, e := range b.Edges {
		if e.Variable == axis {
			return e
		}
	}
	return Edge{}
}

// BinSet is a user-ordered sequence of Bins. Order is significant: it
// both determines histogram index and breaks ties in findBin.
type BinSet struct {
	Bins []Bin
}

// New validates disjointness and returns a BinSet, or a MalformedBinning
// LoadError if any two bins overlap along a shared axis.
func New(bins []Bin) (*BinSet, error) {
	for i := 0; i < len(bins); i++ {
		for j := i + 1; j < len(bins); j++ {
			if ok, axis := overlaps(bins[i], bins[j]); ok {
				return nil, apperrors.NewMalformedBinning(axis, i, j)
			}
		}
	}
	return &BinSet{Bins: bins}, nil
}

// FindBin returns the index of the first bin whose constraints are
// satisfied by values, or -1 if none match. Linear scan: O(bins * dims).
func (s *BinSet) FindBin(values map[string]float64) int {
	for i, b := range s.Bins {
		if b.Contains(values) {
			return i
		}
	}
	return -1
}

// Len returns the number of bins.
func (s *BinSet) Len() int { return len(s.Bins) }

// String renders a Bin in the binning-file token form, for error
// messages and archive dumps.
func (b Bin) String() string {
	out := ""
	for i, e := range b.Edges {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s:[%g,%g)", e.Variable, e.Low, e.High)
	}
	return out
}
