// Package pricing is the single place total amounts come from. Every
// mutation of participation type or options recomputes through Total; a
// stored amount that disagrees with this table is a bug.
package pricing

import (
	"ovation/internal/registration/models"
	dErrors "ovation/pkg/domain-errors"
)

// IndividualPrice is the flat fee for individual participation.
const IndividualPrice int64 = 200

// GroupPackages maps group package tiers to their price.
var GroupPackages = map[string]int64{
	"silver":   750,
	"gold":     1500,
	"platinum": 2000,
}

// RecognitionTiers maps nominee recognition tiers to their price.
var RecognitionTiers = map[string]int64{
	"merit":       250,
	"distinction": 500,
	"laureate":    1000,
}

// Total derives the amount for a (type, options) pair. It is pure: same
// inputs, same amount.
func Total(participationType models.ParticipationType, opts models.Options) (int64, error) {
	switch participationType {
	case models.TypeIndividual:
		return IndividualPrice, nil
	case models.TypeGroup:
		price, ok := GroupPackages[opts.PackageTier]
		if !ok {
			return 0, dErrors.NewValidation("unknown package tier", map[string]string{
				"package_tier": "must be one of silver, gold, platinum",
			})
		}
		return price, nil
	case models.TypeNominee:
		price, ok := RecognitionTiers[opts.RecognitionTier]
		if !ok {
			return 0, dErrors.NewValidation("unknown recognition tier", map[string]string{
				"recognition_tier": "must be one of merit, distinction, laureate",
			})
		}
		return price, nil
	case models.TypeSponsor:
		if opts.CustomAmount <= 0 {
			return 0, dErrors.NewValidation("sponsor amount must be positive", map[string]string{
				"custom_amount": "must be a positive number",
			})
		}
		return opts.CustomAmount, nil
	default:
		return 0, dErrors.New(dErrors.CodeBadRequest, "unknown participation type "+string(participationType))
	}
}
