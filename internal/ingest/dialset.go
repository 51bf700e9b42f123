package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/dial"
	"github.com/nuwisp/gundam-go/internal/fitparam"
)

// LoadDialSets parses a parameter's dial definition file: one line per
// sample, "sampleName kind [x:y,x:y,...]". kind is normalization, graph,
// or spline; the latter two carry a comma-separated list of x:y knots.
// Apply-bin/apply-formula restriction is left to the caller (the
// ingestion boundary the spec leaves external), so every dial here
// applies unconditionally within its sample.
func LoadDialSets(path string) ([]*fitparam.DialSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("cannot open dial file %s", path), err)
	}
	defer f.Close()

	var sets []*fitparam.DialSet
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			return nil, apperrors.NewLoadError(fmt.Sprintf("dial file %s line %d: expected sample and kind", path, lineNo), nil)
		}
		sampleName, kind := tokens[0], tokens[1]
		d, err := buildDial(sampleName, kind, tokens[2:])
		if err != nil {
			return nil, apperrors.NewLoadError(fmt.Sprintf("dial file %s line %d: %v", path, lineNo, err), err)
		}
		sets = append(sets, &fitparam.DialSet{SampleName: sampleName, DialList: []*dial.Dial{d}})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("reading dial file %s", path), err)
	}
	return sets, nil
}

func buildDial(sampleName, kind string, rest []string) (*dial.Dial, error) {
	switch kind {
	case "normalization":
		return dial.NewNormalization(sampleName), nil
	case "graph", "spline":
		if len(rest) == 0 {
			return nil, fmt.Errorf("%s dial requires x:y knots", kind)
		}
		x, y, err := parseKnots(rest[0])
		if err != nil {
			return nil, err
		}
		if kind == "graph" {
			return dial.NewGraph(sampleName, x, y), nil
		}
		return dial.NewSpline(sampleName, x, y), nil
	default:
		return nil, fmt.Errorf("unknown dial kind %q", kind)
	}
}

func parseKnots(s string) ([]float64, []float64, error) {
	pairs := strings.Split(s, ",")
	x := make([]float64, 0, len(pairs))
	y := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		colon := strings.IndexByte(p, ':')
		if colon < 0 {
			return nil, nil, fmt.Errorf("malformed knot %q", p)
		}
		xi, err := strconv.ParseFloat(p[:colon], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad x in knot %q: %w", p, err)
		}
		yi, err := strconv.ParseFloat(p[colon+1:], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad y in knot %q: %w", p, err)
		}
		x = append(x, xi)
		y = append(y, yi)
	}
	return x, y, nil
}
