// Package archive writes the fitter's persisted-state directory tree:
// version metadata, post-fit samples/events/histograms, toy throws, and
// Hesse/Minos error matrices. ROOT serialization is explicitly out of
// scope; everything here is CSV or JSON, mirroring the teacher's
// per-resource file layout (internal/config's one-YAML-per-resource
// convention) and its JSON-dump idiom (internal/monitoring's dashboard
// snapshots).
package archive

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/minimizer"
	"github.com/nuwisp/gundam-go/internal/sample"
)

// Writer roots every archive operation under one output directory.
type Writer struct {
	root string
}

// NewWriter builds a Writer rooted at outputDir, creating it if needed.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, apperrors.NewConfigError("creating archive output directory", err)
	}
	return &Writer{root: outputDir}, nil
}

// WriteVersionInfo writes gundamCalcXsec/{version.txt,commandLine.txt}.
func (w *Writer) WriteVersionInfo(version string, commandLine []string) error {
	dir := filepath.Join(w.root, "gundamCalcXsec")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewConfigError("creating gundamCalcXsec directory", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "version.txt"), []byte(version+"\n"), 0o644); err != nil {
		return apperrors.NewConfigError("writing version.txt", err)
	}
	line := ""
	for i, a := range commandLine {
		if i > 0 {
			line += " "
		}
		line += a
	}
	if err := os.WriteFile(filepath.Join(dir, "commandLine.txt"), []byte(line+"\n"), 0o644); err != nil {
		return apperrors.NewConfigError("writing commandLine.txt", err)
	}
	return nil
}

// WritePostFitHistograms writes one CSV per sample under
// XsecExtractor/postFit/histograms/<sample>.csv: one row per bin, sum
// and error columns.
func (w *Writer) WritePostFitHistograms(samples []*sample.Sample) error {
	dir := filepath.Join(w.root, "XsecExtractor", "postFit", "histograms")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewConfigError("creating histograms directory", err)
	}
	for _, s := range samples {
		if err := writeCSV(filepath.Join(dir, s.Name+".csv"), []string{"bin", "sum", "error"}, func(wr *csv.Writer) error {
			for i := range s.MC.Sum {
				if err := wr.Write([]string{
					strconv.Itoa(i),
					strconv.FormatFloat(s.MC.Sum[i], 'g', -1, 64),
					strconv.FormatFloat(s.MC.Error[i], 'g', -1, 64),
				}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return apperrors.NewConfigError(fmt.Sprintf("writing histogram for sample %q", s.Name), err)
		}
	}
	return nil
}

// WriteThrows writes XsecExtractor/throws/throws.csv: one row per toy
// throw, one column per bin, in the order samples/bins were supplied.
func (w *Writer) WriteThrows(header []string, rows [][]float64) error {
	dir := filepath.Join(w.root, "XsecExtractor", "throws")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewConfigError("creating throws directory", err)
	}
	return writeCSV(filepath.Join(dir, "throws.csv"), header, func(wr *csv.Writer) error {
		for _, row := range rows {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if err := wr.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteHesseErrors writes postFit/Hesse/errors/<paramSet>/{values.csv,
// matrices/covariance_original.csv,...} per the spec's persisted-state
// layout.
func (w *Writer) WriteHesseErrors(paramSetName string, set *fitparam.ParameterSet, cov *minimizer.PostFitCovariance) error {
	dir := filepath.Join(w.root, "postFit", "Hesse", "errors", paramSetName)
	matricesDir := filepath.Join(dir, "matrices")
	if err := os.MkdirAll(matricesDir, 0o755); err != nil {
		return apperrors.NewConfigError("creating Hesse errors directory", err)
	}

	if err := writeCSV(filepath.Join(dir, "values.csv"), []string{"parameter", "value", "sigma"}, func(wr *csv.Writer) error {
		for i, p := range set.Parameters {
			sigma := 0.0
			if i < len(cov.Original) {
				sigma = sqrtNonNeg(cov.Original[i][i])
			}
			if err := wr.Write([]string{p.Name, strconv.FormatFloat(p.Value, 'g', -1, 64), strconv.FormatFloat(sigma, 'g', -1, 64)}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return apperrors.NewConfigError("writing values.csv", err)
	}

	if err := writeMatrixCSV(filepath.Join(matricesDir, "covariance_original.csv"), cov.Original); err != nil {
		return apperrors.NewConfigError("writing covariance_original.csv", err)
	}

	correlation := toCorrelation(cov.Original)
	if err := writeMatrixCSV(filepath.Join(matricesDir, "correlation_original.csv"), correlation); err != nil {
		return apperrors.NewConfigError("writing correlation_original.csv", err)
	}

	return nil
}

// WriteSummaryJSON writes the caller's summary map as summary.json
// (cmd/gundamfit passes the covarianceIndefinite flag) for quick
// inspection without parsing CSVs —
// the teacher's dashboard-snapshot idiom applied to one fit result.
func (w *Writer) WriteSummaryJSON(summary map[string]interface{}) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return apperrors.NewConfigError("marshaling fit summary", err)
	}
	if err := os.WriteFile(filepath.Join(w.root, "summary.json"), data, 0o644); err != nil {
		return apperrors.NewConfigError("writing summary.json", err)
	}
	return nil
}

func writeCSV(path string, header []string, body func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	wr := csv.NewWriter(f)
	if header != nil {
		if err := wr.Write(header); err != nil {
			return err
		}
	}
	if err := body(wr); err != nil {
		return err
	}
	wr.Flush()
	return wr.Error()
}

func writeMatrixCSV(path string, m [][]float64) error {
	return writeCSV(path, nil, func(wr *csv.Writer) error {
		for _, row := range m {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if err := wr.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

func toCorrelation(cov [][]float64) [][]float64 {
	n := len(cov)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			di, dj := sqrtNonNeg(cov[i][i]), sqrtNonNeg(cov[j][j])
			if di == 0 || dj == 0 {
				continue
			}
			out[i][j] = cov[i][j] / (di * dj)
		}
	}
	return out
}

func sqrtNonNeg(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
