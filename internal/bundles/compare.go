package bundles

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// MinCompareBundles is the fewest existing bundles a comparison needs
const MinCompareBundles = 2

// Compare loads the bundles named by ids and compares them. Unknown ids are ignored,
// but at least MinCompareBundles must exist.
func (s *Service) Compare(ctx context.Context, ids []string) (*types.Comparison, error) {
	seen := make(map[string]bool, len(ids))
	found := make([]types.Bundle, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		b, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			found = append(found, *b)
		}
	}
	if len(found) < MinCompareBundles {
		return nil, &ErrComparison{Message: fmt.Sprintf("at least %d existing bundles required, found %d", MinCompareBundles, len(found))}
	}
	return Compare(found), nil
}

// Compare builds the comparison matrix and recommendations for bundles
func Compare(bundles []types.Bundle) *types.Comparison {
	matrix := make(map[string]types.ComparisonRow, len(bundles))
	for i := range bundles {
		b := &bundles[i]
		matrix[b.ID] = types.ComparisonRow{
			Name:                  b.Name,
			TotalMonthlyPremium:   b.TotalMonthlyPremium,
			TotalAnnualDeductible: b.TotalAnnualDeductible,
			TotalMaxOutOfPocket:   b.TotalMaxOutOfPocket,
			BenefitCount:          len(b.Benefits),
			BenefitTypes:          b.BundleTypes(),
		}
	}
	return &types.Comparison{
		Bundles:          bundles,
		ComparisonMatrix: matrix,
		Recommendations:  recommend(bundles),
	}
}

func recommend(bundles []types.Bundle) []string {
	ordered := make([]*types.Bundle, 0, len(bundles))
	for i := range bundles {
		ordered = append(ordered, &bundles[i])
	}
	// ties resolve to the lowest id because every pick below keeps the first best
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var recs []string

	cheapest := ordered[0]
	for _, b := range ordered[1:] {
		if b.TotalMonthlyPremium < cheapest.TotalMonthlyPremium {
			cheapest = b
		}
	}
	recs = append(recs, fmt.Sprintf("Lowest cost option: %s ($%s/month)", cheapest.Name, money(decimal.NewFromFloat(cheapest.TotalMonthlyPremium))))

	widest := ordered[0]
	for _, b := range ordered[1:] {
		if len(b.Benefits) > len(widest.Benefits) {
			widest = b
		}
	}
	recs = append(recs, fmt.Sprintf("Most comprehensive: %s (%d benefits)", widest.Name, len(widest.Benefits)))

	var bestValue *types.Bundle
	var bestPer decimal.Decimal
	for _, b := range ordered {
		if len(b.Benefits) == 0 {
			continue
		}
		per := decimal.NewFromFloat(b.TotalMonthlyPremium).Div(decimal.NewFromInt(int64(len(b.Benefits))))
		if bestValue == nil || per.LessThan(bestPer) {
			bestValue, bestPer = b, per
		}
	}
	if bestValue != nil {
		recs = append(recs, fmt.Sprintf("Best value: %s ($%s per benefit)", bestValue.Name, money(bestPer)))
	}
	return recs
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
