package mathutil

import "sort"

// CubicSpline is a natural cubic spline through a tabulated (x, y)
// curve, evaluated with the "clamp at endpoints" boundary policy: values
// outside [xmin, xmax] return the endpoint value rather than
// extrapolating. None of the example repos in the reference pack ship a
// spline package, so this is hand-rolled; see DESIGN.md.
type CubicSpline struct {
	x, y       []float64
	b, c, d    []float64 // per-segment cubic coefficients
	equidistant bool
	step        float64
}

// NewCubicSpline builds a natural cubic spline from knots (x[i], y[i]).
// x must be strictly increasing.
func NewCubicSpline(x, y []float64) *CubicSpline {
	n := len(x)
	s := &CubicSpline{x: append([]float64(nil), x...), y: append([]float64(nil), y...)}
	if n < 2 {
		s.b, s.c, s.d = make([]float64, n), make([]float64, n), make([]float64, n)
		return s
	}

	s.equidistant, s.step = detectEquidistant(x)

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3/h[i]*(y[i+1]-y[i]) - 3/h[i-1]*(y[i]-y[i-1])
	}

	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1
	for i := 1; i < n-1; i++ {
		l[i] = 2*(x[i+1]-x[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1

	c := make([]float64, n)
	b := make([]float64, n)
	d := make([]float64, n)
	for j := n - 2; j >= 0; j-- {
		c[j] = z[j] - mu[j]*c[j+1]
		b[j] = (y[j+1]-y[j])/h[j] - h[j]*(c[j+1]+2*c[j])/3
		d[j] = (c[j+1] - c[j]) / (3 * h[j])
	}

	s.b, s.c, s.d = b, c, d
	return s
}

func detectEquidistant(x []float64) (bool, float64) {
	if len(x) < 2 {
		return false, 0
	}
	step := x[1] - x[0]
	for i := 1; i < len(x)-1; i++ {
		if abs(x[i+1]-x[i]-step) > 1e-9*abs(step) {
			return false, 0
		}
	}
	return true, step
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Eval evaluates the spline at x, clamping to the endpoint value outside
// [xmin, xmax]. If the spline has equidistant knots, this uses the fast
// segment-index path; otherwise it binary-searches for the segment.
func (s *CubicSpline) Eval(x float64) float64 {
	n := len(s.x)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return s.y[0]
	}
	if x <= s.x[0] {
		return s.y[0]
	}
	if x >= s.x[n-1] {
		return s.y[n-1]
	}

	var i int
	if s.equidistant {
		i = int((x - s.x[0]) / s.step)
		if i >= n-1 {
			i = n - 2
		}
	} else {
		i = sort.SearchFloat64s(s.x, x) - 1
		if i < 0 {
			i = 0
		}
		if i > n-2 {
			i = n - 2
		}
	}

	dx := x - s.x[i]
	return s.y[i] + s.b[i]*dx + s.c[i]*dx*dx + s.d[i]*dx*dx*dx
}

// Xmin and Xmax report the domain over which Eval does not clamp.
func (s *CubicSpline) Xmin() float64 {
	if len(s.x) == 0 {
		return 0
	}
	return s.x[0]
}

func (s *CubicSpline) Xmax() float64 {
	if len(s.x) == 0 {
		return 0
	}
	return s.x[len(s.x)-1]
}
