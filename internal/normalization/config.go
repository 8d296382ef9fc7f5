package normalization

import (
	"fmt"
	"sort"
)

// Config parameterizes the derivation stages.
type Config struct {
	// Windows are the trailing sum windows (in appearances).
	Windows []int
	// SmoothingWindow drives shrinkage averages, dispersion and shot averages.
	SmoothingWindow int
	// ShortWindow is the short shot-average window.
	ShortWindow int
	// DecayAlpha is the exponential decay smoothing factor.
	DecayAlpha float64
	// RestCapDays caps rest days.
	RestCapDays float64
	// LongRestDays is the threshold above which the rest reset flag fires.
	LongRestDays float64
	// SeasonLength normalizes season phase.
	SeasonLength float64
	// ProbEpsilon bounds market probabilities to [eps, 1-eps].
	ProbEpsilon float64
	// RatioEpsilon guards log ratios.
	RatioEpsilon float64
}

// DefaultConfig returns the parameters the trained models were fitted with.
func DefaultConfig() Config {
	return Config{
		Windows:         []int{3, 5, 10},
		SmoothingWindow: 5,
		ShortWindow:     3,
		DecayAlpha:      0.3,
		RestCapDays:     28,
		LongRestDays:    35,
		SeasonLength:    38,
		ProbEpsilon:     1e-6,
		RatioEpsilon:    1e-3,
	}
}

// Validate checks parameter ranges and sorts windows.
func (c *Config) Validate() error {
	if len(c.Windows) == 0 {
		return fmt.Errorf("at least one rolling window is required")
	}
	for _, w := range c.Windows {
		if w <= 0 {
			return fmt.Errorf("rolling window must be positive, got %d", w)
		}
	}
	sort.Ints(c.Windows)
	if c.SmoothingWindow <= 0 || c.ShortWindow <= 0 {
		return fmt.Errorf("smoothing windows must be positive")
	}
	if c.DecayAlpha <= 0 || c.DecayAlpha > 1 {
		return fmt.Errorf("decay alpha must be in (0, 1], got %v", c.DecayAlpha)
	}
	if c.SeasonLength <= 0 {
		return fmt.Errorf("season length must be positive")
	}
	if c.ProbEpsilon <= 0 || c.ProbEpsilon >= 0.5 {
		return fmt.Errorf("probability epsilon out of range: %v", c.ProbEpsilon)
	}
	if c.RatioEpsilon <= 0 {
		return fmt.Errorf("ratio epsilon must be positive")
	}
	return nil
}
