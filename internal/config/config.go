// Package config loads and validates the YAML fit configuration that
// drives the whole pipeline: which binning/covariance files to read,
// how many worker threads to spawn, which joint-probability kernel to
// use, and how the minimizer should behave.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineVersion is compared against MinGundamVersion in Validate; bump it
// whenever a config-incompatible change lands.
const EngineVersion = "1.0.0"

// Config is the root of the fit configuration file.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Datasets     []DatasetConfig    `yaml:"datasets"`
	ParameterSets []ParameterSetConfig `yaml:"parameterSets"`
	Samples      []SampleConfig     `yaml:"samples"`
	Propagator   PropagatorConfig   `yaml:"propagator"`
	Likelihood   LikelihoodConfig   `yaml:"likelihood"`
	Minimizer    MinimizerConfig    `yaml:"minimizer"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// AppConfig carries identity and compatibility metadata.
type AppConfig struct {
	Name             string `yaml:"name"`
	MinGundamVersion string `yaml:"minGundamVersion"`
}

// DatasetConfig names one on-disk source of events (ingestion itself is
// an external collaborator; this only names what to bind to a Sample).
type DatasetConfig struct {
	Name     string `yaml:"name"`
	TreePath string `yaml:"treePath"`
}

// ParameterConfig is one scalar nuisance/signal parameter.
type ParameterConfig struct {
	Name     string   `yaml:"name"`
	Prior    float64  `yaml:"prior"`
	Sigma    float64  `yaml:"sigma"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Step     float64  `yaml:"step"`
	Fixed    bool     `yaml:"fixed"`
	Enabled  bool     `yaml:"enabled"`
	DialFile string   `yaml:"dialFile"`
}

// ParameterSetConfig is a correlated block of parameters.
type ParameterSetConfig struct {
	Name             string            `yaml:"name"`
	CovarianceFile   string            `yaml:"covarianceFile"`
	Parameters       []ParameterConfig `yaml:"parameters"`
	EnableEigenDecomp bool             `yaml:"enableEigenDecomp"`
	MaskForToys      bool              `yaml:"maskForToys"`
}

// SampleConfig binds a dataset slice, a selection cut, and a binning file.
type SampleConfig struct {
	Name        string `yaml:"name"`
	Dataset     string `yaml:"dataset"`
	SelectionCut string `yaml:"selectionCut"`
	BinningFile string `yaml:"binningFile"`
}

// PropagatorConfig controls the reweighting pass.
type PropagatorConfig struct {
	NbThreads               int  `yaml:"nbThreads"`
	ThrowOnInvalidResponse  bool `yaml:"throwOnInvalidResponse"`
	ShowEventBreakdown      bool `yaml:"showEventBreakdown"`
}

// JointProbabilityConfig selects and configures a stat kernel.
type JointProbabilityConfig struct {
	Type                     string `yaml:"type"` // poisson, chi2, leastSquares, barlowBeeston, barlowBeestonOA2020, barlowBeestonOA2021
	LsqPoissonianApproximation bool `yaml:"lsqPoissonianApproximation"`
	AllowZeroMcWhenZeroData  bool   `yaml:"allowZeroMcWhenZeroData"`
	UsePoissonLikelihood     bool   `yaml:"usePoissonLikelihood"`
	BBNoUpdateWeights        bool   `yaml:"bbNoUpdateWeights"`
}

// LikelihoodConfig controls LikelihoodInterface behavior.
type LikelihoodConfig struct {
	JointProbability         JointProbabilityConfig `yaml:"jointProbabilityConfig"`
	ShowEventBreakdown       bool                   `yaml:"showEventBreakdown"`
	RateLimitedMonitorPeriodMs int                  `yaml:"rateLimitedMonitorPeriod"`
}

// MinimizerConfig controls MinimizerDriver behavior.
type MinimizerConfig struct {
	UseNormalizedFitSpace       bool    `yaml:"useNormalizedFitSpace"`
	EnableSimplexBeforeMinimize bool    `yaml:"enableSimplexBeforeMinimize"`
	ErrorsAlgo                  string  `yaml:"errorsAlgo"` // Hesse, Minos
	StepSizeScaling              float64 `yaml:"stepSizeScaling"`
	Tolerance                    float64 `yaml:"tolerance"`
	MaxFunctionCalls             int     `yaml:"maxFunctionCalls"`
	MaxIterations                int     `yaml:"maxIterations"`
	ThrowOnBadLikelihood          bool    `yaml:"throwOnBadLikelihood"`
	StrictCovariance             bool    `yaml:"strictCovariance"`
}

// ArchiveConfig controls where the persisted output tree is written.
type ArchiveConfig struct {
	OutputDir string `yaml:"outputDir"`
}

// LoggingConfig mirrors logger.Config's YAML shape so it can be embedded
// directly in the fit config file.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses a YAML fit configuration from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config with the spec's documented defaults applied,
// to be overridden by whatever keys are present in the YAML file.
func Default() *Config {
	return &Config{
		Propagator: PropagatorConfig{
			NbThreads:              1,
			ThrowOnInvalidResponse: true,
		},
		Likelihood: LikelihoodConfig{
			JointProbability: JointProbabilityConfig{Type: "poisson"},
		},
		Minimizer: MinimizerConfig{
			UseNormalizedFitSpace: true,
			ErrorsAlgo:            "Hesse",
			StepSizeScaling:       1.0,
			Tolerance:             0.1,
			MaxFunctionCalls:      1_000_000,
			MaxIterations:         10_000,
			ThrowOnBadLikelihood:  true,
		},
		Archive: ArchiveConfig{OutputDir: "./gundam_out"},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}
