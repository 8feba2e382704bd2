package reconciler

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"portfolio-reconciliation-service/internal/matcher"
	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/internal/normalizer"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	// Dimensions lists the grouped transition matrices to build, in order.
	Dimensions []models.Dimension
	// ComparisonDimensions lists the grouped balance comparisons to build, in order.
	ComparisonDimensions []models.Dimension

	DuplicatePolicy matcher.DuplicatePolicy
	Normalizer      *normalizer.Options

	// RequireLadderBalance fails the run when Adjusted != Closing instead of
	// reporting a warning.
	RequireLadderBalance bool
}

// DefaultConfig returns the configuration that reproduces the standard report
func DefaultConfig() *Config {
	return &Config{
		Dimensions:           []models.Dimension{models.DimensionBranch, models.DimensionAccountType},
		ComparisonDimensions: []models.Dimension{models.DimensionAccountType, models.DimensionBranch},
		DuplicatePolicy:      matcher.DuplicatesAllow,
		Normalizer:           normalizer.DefaultOptions(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dimensions, validation.Each(validation.In(toAny(models.AllDimensions)...))),
		validation.Field(&c.ComparisonDimensions, validation.Each(validation.In(toAny(models.AllDimensions)...))),
		validation.Field(&c.DuplicatePolicy, validation.Required,
			validation.In(matcher.DuplicatesAllow, matcher.DuplicatesReject)),
		validation.Field(&c.Normalizer, validation.Required),
	)
}

func toAny(dims []models.Dimension) []interface{} {
	out := make([]interface{}, len(dims))
	for i, d := range dims {
		out[i] = d
	}
	return out
}
