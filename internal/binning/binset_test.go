package binning

import (
	"strings"
	"testing"
)

func TestFindBinOrderAndFirstMatch(t *testing.T) {
	set, err := New([]Bin{
		{Edges: []Edge{{Variable: "E", Low: 0, High: 1}}},
		{Edges: []Edge{{Variable: "E", Low: 1, High: 2}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx := set.FindBin(map[string]float64{"E": 0.5}); idx != 0 {
		t.Fatalf("got %d, want 0", idx)
	}
	if idx := set.FindBin(map[string]float64{"E": 1.5}); idx != 1 {
		t.Fatalf("got %d, want 1", idx)
	}
	if idx := set.FindBin(map[string]float64{"E": 5}); idx != -1 {
		t.Fatalf("got %d, want -1 (no bin matches)", idx)
	}
}

func TestNewRejectsOverlap(t *testing.T) {
	_, err := New([]Bin{
		{Edges: []Edge{{Variable: "E", Low: 0, High: 1}}},
		{Edges: []Edge{{Variable: "E", Low: 0.5, High: 1.5}}},
	})
	if err == nil {
		t.Fatalf("expected MalformedBinning error for overlapping bins")
	}
}

func TestDisjointAcrossUnsharedAxes(t *testing.T) {
	// Two bins constraining different variables never "overlap" in the
	// loader's sense even though every point could satisfy both.
	_, err := New([]Bin{
		{Edges: []Edge{{Variable: "E", Low: 0, High: 1}}},
		{Edges: []Edge{{Variable: "theta", Low: 0, High: 1}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadParsesFileFormat(t *testing.T) {
	text := "" +
		"# comment line\n" +
		"E:[0,1) theta:[0,0.5)\n" +
		"\n" +
		"E:[1,2) theta:[0,0.5)\n"
	set, err := parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("got %d bins, want 2", set.Len())
	}
	if idx := set.FindBin(map[string]float64{"E": 0.2, "theta": 0.1}); idx != 0 {
		t.Fatalf("got %d, want 0", idx)
	}
}

func TestParseTokenRejectsMalformed(t *testing.T) {
	cases := []string{"E[0,1)", "E:0,1)", "E:[1,0)"}
	for _, c := range cases {
		if _, err := parseToken(c); err == nil {
			t.Errorf("expected error for token %q", c)
		}
	}
}
