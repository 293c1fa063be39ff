package config

import (
	"fmt"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.TopK)
	}

	if c.MinScore < 0 || c.MinScore >= 1 {
		return fmt.Errorf("%w: must be in [0, 1), got %v", ErrInvalidMinScore, c.MinScore)
	}

	// Weight bounds must bracket the neutral value or feedback can never
	// move entries in both directions.
	if c.WeightMin <= 0 {
		return fmt.Errorf("%w: weight_min must be positive, got %v", ErrInvalidWeightBounds, c.WeightMin)
	}
	if c.WeightMax <= c.WeightMin {
		return fmt.Errorf("%w: weight_max %v must exceed weight_min %v",
			ErrInvalidWeightBounds, c.WeightMax, c.WeightMin)
	}
	if c.WeightNeutral < c.WeightMin || c.WeightNeutral > c.WeightMax {
		return fmt.Errorf("%w: weight_neutral %v outside [%v, %v]",
			ErrInvalidWeightBounds, c.WeightNeutral, c.WeightMin, c.WeightMax)
	}

	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("%w: must be in (0, 1], got %v", ErrInvalidLearningRate, c.LearningRate)
	}

	// Cap uploads at 100 MiB; anything larger belongs in a real pipeline
	if c.MaxUploadBytes < 1024 || c.MaxUploadBytes > 100<<20 {
		return fmt.Errorf("%w: must be between 1 KiB and 100 MiB, got %d",
			ErrInvalidUploadLimit, c.MaxUploadBytes)
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: rate_limit_rps must be positive, got %v", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimitBurst)
	}

	if c.RefinerEnabled {
		if c.RefinerModel == "" {
			return fmt.Errorf("%w: refiner_model cannot be empty when refinement is enabled",
				ErrInvalidRefinerModel)
		}
		if c.RefinerAPIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY or disable the refiner\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingRefinerKey)
		}
	}

	return nil
}
