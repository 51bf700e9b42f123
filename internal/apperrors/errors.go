// Package apperrors defines the typed error taxonomy shared across the
// fitter: config/load errors caught before a fit starts, math/minimizer
// errors raised during a fit, and covariance warnings raised after one.
package apperrors

import (
	"fmt"
	"time"
)

// ErrorCode identifies the broad family an error belongs to.
type ErrorCode string

const (
	ErrCodeConfig            ErrorCode = "CONFIG_ERROR"
	ErrCodeLoad              ErrorCode = "LOAD_ERROR"
	ErrCodeMath              ErrorCode = "MATH_ERROR"
	ErrCodeMinimizer         ErrorCode = "MINIMIZER_ERROR"
	ErrCodeCovarianceWarning ErrorCode = "COVARIANCE_WARNING"
)

// Severity ranks how an error should be surfaced to a human operator.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AppError is the common envelope for every error the core raises. It
// always carries the full identifier of the offending entity so that a
// run can be reproduced from the log alone (spec §7).
type AppError struct {
	Code      ErrorCode
	Message   string
	Severity  Severity
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *AppError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s %s", e.Code, e.Message, formatDetails(e.Details))
}

func (e *AppError) Unwrap() error { return e.Cause }

func formatDetails(d map[string]interface{}) string {
	out := "("
	first := true
	for _, k := range []string{"paramSet", "parameter", "sample", "bin", "event", "x"} {
		v, ok := d[k]
		if !ok {
			continue
		}
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s=%v", k, v)
	}
	for k, v := range d {
		switch k {
		case "paramSet", "parameter", "sample", "bin", "event", "x":
			continue
		}
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s=%v", k, v)
	}
	return out + ")"
}

func newError(code ErrorCode, severity Severity, message string, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
		Cause:     cause,
	}
}

// WithDetail attaches a structured identifier to the error and returns it
// for chaining.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	e.Details[key] = value
	return e
}

// NewConfigError reports a malformed or missing configuration key, or an
// engine-version mismatch (minGundamVersion in the spec's config table).
func NewConfigError(message string, cause error) *AppError {
	return newError(ErrCodeConfig, SeverityError, message, cause)
}

// NewLoadError reports unreadable inputs, binning disjointness violations,
// or covariance symmetry/PSD failures.
func NewLoadError(message string, cause error) *AppError {
	return newError(ErrCodeLoad, SeverityError, message, cause)
}

// NewMathError reports NaN/Inf weights, non-finite likelihoods, or a
// negative dial response under a strict dial policy. The Propagator and
// LikelihoodInterface never recover from these; they surface them.
func NewMathError(message string, cause error) *AppError {
	return newError(ErrCodeMath, SeverityCritical, message, cause)
}

// NewMinimizerError preserves a minimizer status code verbatim alongside
// a human-readable translation.
func NewMinimizerError(message string, cause error) *AppError {
	return newError(ErrCodeMinimizer, SeverityError, message, cause)
}

// NewCovarianceWarning reports an indefinite or ill-conditioned post-fit
// covariance. In non-strict mode this is a warning: the archive is still
// written with best-effort results.
func NewCovarianceWarning(message string) *AppError {
	return newError(ErrCodeCovarianceWarning, SeverityWarning, message, nil)
}

// IsStrictPromotion reports whether a CovarianceWarning should be treated
// as fatal given the caller's strict-mode setting.
func (e *AppError) IsStrictPromotion(strict bool) bool {
	return e.Code == ErrCodeCovarianceWarning && strict
}
