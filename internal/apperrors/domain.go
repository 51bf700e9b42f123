package apperrors

import "fmt"

// NewMalformedBinning reports two bins in a BinSet that overlap along a
// shared variable axis.
func NewMalformedBinning(axis string, binA, binB int) *AppError {
	return NewLoadError(
		fmt.Sprintf("bins %d and %d overlap on axis %q", binA, binB, axis), nil,
	).WithDetail("bin", binA).WithDetail("otherBin", binB).WithDetail("axis", axis)
}

// NewNegativeResponse reports a strict dial returning a response below
// its floor. Carries the dial identity and the parameter value that
// produced it.
func NewNegativeResponse(dialName string, x, response, floor float64) *AppError {
	return NewMathError(
		fmt.Sprintf("dial %q returned %g below floor %g", dialName, response, floor), nil,
	).WithDetail("dial", dialName).WithDetail("x", x).WithDetail("response", response)
}

// NewNonFiniteDialResponse reports a single dial evaluation that itself
// produced NaN/Inf, before it ever reaches an event's weight product.
func NewNonFiniteDialResponse(dialName string, x float64) *AppError {
	return NewMathError(
		fmt.Sprintf("dial %q produced a non-finite response at x=%g", dialName, x), nil,
	).WithDetail("dial", dialName).WithDetail("x", x)
}

// NewInvalidResponse reports a dial product that became non-finite while
// reweighting a specific event under a specific parameter.
func NewInvalidResponse(sample string, eventID int, paramSet string, paramIndex int, value float64) *AppError {
	return NewMathError(
		fmt.Sprintf("non-finite weight for event %d in sample %q", eventID, sample), nil,
	).WithDetail("sample", sample).WithDetail("event", eventID).
		WithDetail("paramSet", paramSet).WithDetail("parameter", paramIndex).WithDetail("x", value)
}

// NewInvalidLikelihood reports mu=0, n>0 under the Poisson convention,
// which formally diverges to +Inf.
func NewInvalidLikelihood(sample string, bin int, mu, n float64) *AppError {
	return NewMathError(
		fmt.Sprintf("sample %q bin %d: mu=%g, n=%g diverges", sample, bin, mu, n), nil,
	).WithDetail("sample", sample).WithDetail("bin", bin)
}
