// Package strategy maps a campaign configuration and recipient index to
// a template choice.
package strategy

import (
	"errors"
	"math/rand"

	"telereach/models"
)

// ErrEmptyRotation is returned when rotation steps expand to nothing.
// A campaign with such a rotation must be rejected before any task is
// queued.
var ErrEmptyRotation = errors.New("rotation steps cannot be empty")

// Selector picks the template for the recipient at position i
// (0-indexed, in recipient-list order).
type Selector func(i int) uint

// Single assigns every recipient the same template.
func Single(templateID uint) Selector {
	return func(int) uint { return templateID }
}

// Rotation expands steps [(A,2),(B,1)] into the cyclic sequence
// A,A,B and assigns sequence[i mod len].
func Rotation(steps []models.RotationStep) (Selector, error) {
	var sequence []uint
	for _, step := range steps {
		for n := 0; n < step.Count; n++ {
			sequence = append(sequence, step.TemplateID)
		}
	}
	if len(sequence) == 0 {
		return nil, ErrEmptyRotation
	}
	return func(i int) uint {
		return sequence[i%len(sequence)]
	}, nil
}

// WeightedAB draws r uniformly in [0, total weight) per recipient and
// walks the variants, picking the first whose cumulative weight reaches
// r. Proportional convergence is statistical, not per-batch exact.
func WeightedAB(variants []models.ABTestVariant, rng *rand.Rand) Selector {
	total := 0.0
	for _, v := range variants {
		total += float64(v.Weight)
	}
	return func(int) uint {
		r := rng.Float64() * total
		upto := 0.0
		for _, v := range variants {
			if upto+float64(v.Weight) >= r {
				return v.TemplateID
			}
			upto += float64(v.Weight)
		}
		// Unreachable for positive weights; fall back to the last variant.
		if len(variants) > 0 {
			return variants[len(variants)-1].TemplateID
		}
		return 0
	}
}

// ForCampaign builds the selector for a campaign configuration.
// Precedence: explicit rotation, then A/B variants, then the bare
// template id.
func ForCampaign(cfg models.CampaignConfig, variants []models.ABTestVariant, rng *rand.Rand) (Selector, error) {
	switch {
	case len(cfg.RotationSteps) > 0:
		return Rotation(cfg.RotationSteps)
	case cfg.ABTestID != nil && len(variants) > 0:
		return WeightedAB(variants, rng), nil
	case cfg.TemplateID != nil:
		return Single(*cfg.TemplateID), nil
	default:
		return nil, errors.New("campaign config selects no template")
	}
}
