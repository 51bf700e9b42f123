// Package ingest loads events from CSV files: the stand-in for the
// original's ROOT TTree reader, which the spec excludes explicitly.
// One row per event; a "weight" column and any number of named variable
// columns, mirroring the binning package's own line-based file format.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/variable"
)

// LoadEvents reads a CSV file with a header row naming its columns. The
// "weight" column becomes an event's base weight; every other column
// becomes a scalar variable. Rows are otherwise unordered with respect
// to sample/bin assignment, which LoadEvents (sample package) performs
// afterward.
func LoadEvents(path string, datasetIndex int) ([]*variable.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("cannot open dataset %s", path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, apperrors.NewLoadError(fmt.Sprintf("dataset %s: empty or unreadable header", path), err)
	}
	weightCol := -1
	for i, name := range header {
		if name == "weight" {
			weightCol = i
			break
		}
	}
	if weightCol < 0 {
		return nil, apperrors.NewLoadError(fmt.Sprintf("dataset %s: missing required %q column", path, "weight"), nil)
	}

	var events []*variable.Event
	entryID := int64(0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewLoadError(fmt.Sprintf("dataset %s entry %d: malformed row", path, entryID), err)
		}
		weight, err := strconv.ParseFloat(record[weightCol], 64)
		if err != nil {
			return nil, apperrors.NewLoadError(fmt.Sprintf("dataset %s entry %d: bad weight %q", path, entryID, record[weightCol]), err)
		}
		store := variable.NewVariableStore()
		for i, name := range header {
			if i == weightCol || i >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, apperrors.NewLoadError(fmt.Sprintf("dataset %s entry %d: bad value for %q", path, entryID, name), err)
			}
			store.SetScalar(name, v)
		}
		store.Freeze()
		events = append(events, variable.NewEvent(datasetIndex, entryID, weight, store))
		entryID++
	}
	return events, nil
}

// VariableValues adapts an Event's frozen VariableStore into the
// map[string]float64 shape BinSet.FindBin and Dial.Applies expect.
func VariableValues(e *variable.Event) map[string]float64 {
	out := make(map[string]float64, len(e.Variables.Names()))
	for _, name := range e.Variables.Names() {
		if v, ok := e.Variables.Scalar(name); ok {
			out[name] = v
		}
	}
	return out
}
