package ingest

import "testing"

func TestLoadCovarianceSquareMatrix(t *testing.T) {
	path := writeTempFile(t, "cov.csv", "1,0.2\n0.2,1\n")

	cov, err := LoadCovariance(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := cov.Dims()
	if n != 2 {
		t.Fatalf("got dim %d, want 2", n)
	}
	if cov.At(0, 1) != 0.2 || cov.At(1, 0) != 0.2 {
		t.Fatalf("off-diagonal not preserved: %v, %v", cov.At(0, 1), cov.At(1, 0))
	}
}

func TestLoadCovarianceRejectsRaggedRows(t *testing.T) {
	path := writeTempFile(t, "cov.csv", "1,0.2,0.1\n0.2,1\n")
	if _, err := LoadCovariance(path); err == nil {
		t.Fatalf("expected error for ragged row")
	}
}
