package likelihood

import (
	"github.com/nuwisp/gundam-go/internal/apperrors"
	"github.com/nuwisp/gundam-go/internal/config"
)

// NewKernelFromConfig builds the Kernel named by cfg.Type, applying the
// variant-specific flags the config carries for it. Validator.Validate
// already rejects unknown types before this is ever called in the
// normal startup path.
func NewKernelFromConfig(cfg config.JointProbabilityConfig) (Kernel, error) {
	switch cfg.Type {
	case "poisson":
		return PoissonKernel{}, nil
	case "chi2":
		return ChiSquareKernel{}, nil
	case "leastSquares":
		return LeastSquaresKernel{PoissonApproximation: cfg.LsqPoissonianApproximation}, nil
	case "barlowBeeston":
		return BarlowBeestonKernel{Variant: BarlowBeestonFull}, nil
	case "barlowBeestonOA2020":
		return BarlowBeestonKernel{Variant: BarlowBeestonOA2020}, nil
	case "barlowBeestonOA2021":
		return BarlowBeestonKernel{
			Variant:                 BarlowBeestonOA2021,
			AllowZeroMcWhenZeroData: cfg.AllowZeroMcWhenZeroData,
			UsePoissonLikelihood:    cfg.UsePoissonLikelihood,
			NoBarlowBeestonUpdate:   cfg.BBNoUpdateWeights,
		}, nil
	default:
		return nil, apperrors.NewConfigError("unknown jointProbabilityConfig.type", nil).WithDetail("type", cfg.Type)
	}
}
