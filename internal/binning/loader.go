package binning

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

// Load parses a binning definition file: one bin per line, tokens
// "varName:[lo,hi)" separated by whitespace, lines beginning with '#'
// are comments. Disjointness is checked via New.
func Load(path string) (*BinSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("cannot open binning file %s", path), err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*BinSet, error) {
	var bins []Bin
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bin, err := parseLine(line)
		if err != nil {
			return nil, apperrors.NewLoadError(fmt.Sprintf("binning file line %d: %v", lineNo, err), err)
		}
		bins = append(bins, bin)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewLoadError("reading binning file", err)
	}
	return New(bins)
}

func parseLine(line string) (Bin, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Bin{}, fmt.Errorf("empty bin line")
	}
	var bin Bin
	for _, tok := range tokens {
		edge, err := parseToken(tok)
		if err != nil {
			return Bin{}, err
		}
		bin.Edges = append(bin.Edges, edge)
	}
	return bin, nil
}

// parseToken parses "varName:[lo,hi)".
func parseToken(tok string) (Edge, error) {
	colon := strings.IndexByte(tok, ':')
	if colon < 0 {
		return Edge{}, fmt.Errorf("missing ':' in token %q", tok)
	}
	name := tok[:colon]
	rest := tok[colon+1:]
	if len(rest) < 2 || rest[0] != '[' || rest[len(rest)-1] != ')' {
		return Edge{}, fmt.Errorf("expected [lo,hi) in token %q", tok)
	}
	inner := rest[1 : len(rest)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return Edge{}, fmt.Errorf("expected lo,hi in token %q", tok)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Edge{}, fmt.Errorf("bad low edge in token %q: %w", tok, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Edge{}, fmt.Errorf("bad high edge in token %q: %w", tok, err)
	}
	if lo >= hi {
		return Edge{}, fmt.Errorf("low >= high in token %q", tok)
	}
	return Edge{Variable: name, Low: lo, High: hi}, nil
}
