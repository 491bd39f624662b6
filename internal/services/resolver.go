package services

import (
	"strings"

	"github.com/tbourn/skinvault/internal/domain"
)

// ResolveBest picks the representative variant of one (defindex, paintindex)
// chunk: among candidates with a non-blank UV type marker, the one with the lowest
// float value. On exact ties the earliest candidate wins.
func ResolveBest(candidates []domain.VariantRecord) (domain.VariantRecord, error) {
	best := -1
	for i, c := range candidates {
		if strings.TrimSpace(c.UVType) == "" {
			continue
		}
		if best < 0 || c.FloatValue < candidates[best].FloatValue {
			best = i
		}
	}
	if best < 0 {
		return domain.VariantRecord{}, ErrNoEligibleCandidate
	}
	return candidates[best], nil
}
