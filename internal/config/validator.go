package config

import (
	"fmt"
	"strings"

	"github.com/nuwisp/gundam-go/internal/apperrors"
)

var validJointProbabilityTypes = map[string]bool{
	"poisson": true, "chi2": true, "leastSquares": true,
	"barlowBeeston": true, "barlowBeestonOA2020": true, "barlowBeestonOA2021": true,
}

// Validator checks a Config for internal consistency before anything is
// loaded from disk. It never touches the filesystem itself; LoadError
// for unreadable files is raised later, where the actual I/O happens.
type Validator struct {
	cfg *Config
}

// NewValidator wraps cfg for validation.
func NewValidator(cfg *Config) *Validator { return &Validator{cfg: cfg} }

// Validate runs every section validator and aggregates failures into a
// single ConfigError.
func (v *Validator) Validate() error {
	var problems []string
	for _, fn := range []func() error{
		v.validateVersion,
		v.validateParameterSets,
		v.validateSamples,
		v.validatePropagator,
		v.validateJointProbability,
		v.validateMinimizer,
	} {
		if err := fn(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return apperrors.NewConfigError("invalid configuration", nil).
			WithDetail("problems", strings.Join(problems, "; "))
	}
	return nil
}

func (v *Validator) validateVersion() error {
	if v.cfg.App.MinGundamVersion == "" {
		return nil
	}
	if compareVersions(EngineVersion, v.cfg.App.MinGundamVersion) < 0 {
		return fmt.Errorf("engine version %s is older than required %s", EngineVersion, v.cfg.App.MinGundamVersion)
	}
	return nil
}

// compareVersions compares dotted numeric versions; returns -1, 0, 1.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var na, nb int
		if i < len(pa) {
			fmt.Sscanf(pa[i], "%d", &na)
		}
		if i < len(pb) {
			fmt.Sscanf(pb[i], "%d", &nb)
		}
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (v *Validator) validateParameterSets() error {
	seen := make(map[string]bool)
	for _, ps := range v.cfg.ParameterSets {
		if ps.Name == "" {
			return fmt.Errorf("parameter set with empty name")
		}
		if seen[ps.Name] {
			return fmt.Errorf("duplicate parameter set name %q", ps.Name)
		}
		seen[ps.Name] = true
		paramNames := make(map[string]bool)
		for _, p := range ps.Parameters {
			if p.Name == "" {
				return fmt.Errorf("parameter set %q has a parameter with empty name", ps.Name)
			}
			if paramNames[p.Name] {
				return fmt.Errorf("parameter set %q has duplicate parameter %q", ps.Name, p.Name)
			}
			paramNames[p.Name] = true
			if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
				return fmt.Errorf("parameter %q/%q has min > max", ps.Name, p.Name)
			}
		}
	}
	return nil
}

func (v *Validator) validateSamples() error {
	for _, s := range v.cfg.Samples {
		if s.Name == "" {
			return fmt.Errorf("sample with empty name")
		}
		if s.BinningFile == "" {
			return fmt.Errorf("sample %q has no binningFile", s.Name)
		}
	}
	return nil
}

func (v *Validator) validatePropagator() error {
	if v.cfg.Propagator.NbThreads < 1 {
		return fmt.Errorf("propagator.nbThreads must be >= 1, got %d", v.cfg.Propagator.NbThreads)
	}
	return nil
}

func (v *Validator) validateJointProbability() error {
	t := v.cfg.Likelihood.JointProbability.Type
	if !validJointProbabilityTypes[t] {
		return fmt.Errorf("unknown jointProbabilityConfig.type %q", t)
	}
	return nil
}

func (v *Validator) validateMinimizer() error {
	m := v.cfg.Minimizer
	if m.ErrorsAlgo != "Hesse" && m.ErrorsAlgo != "Minos" {
		return fmt.Errorf("minimizer.errorsAlgo must be Hesse or Minos, got %q", m.ErrorsAlgo)
	}
	if m.Tolerance <= 0 {
		return fmt.Errorf("minimizer.tolerance must be > 0")
	}
	if m.StepSizeScaling <= 0 {
		return fmt.Errorf("minimizer.stepSizeScaling must be > 0")
	}
	return nil
}
