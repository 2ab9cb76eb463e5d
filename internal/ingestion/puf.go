package ingestion

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// costSharing holds premium multiples used to estimate deductible and out-of-pocket maximum
type costSharing struct {
	deductible int64
	oop        int64
}

var costSharingByMetal = map[types.MetalLevel]costSharing{
	types.MetalPlatinum: {deductible: 2, oop: 8},
	types.MetalGold:     {deductible: 4, oop: 10},
	types.MetalSilver:   {deductible: 6, oop: 12},
}

var bronzeCostSharing = costSharing{deductible: 8, oop: 15}

// EstimateCostSharing derives deductible and out-of-pocket maximum from the metal level and premium
func EstimateCostSharing(metal types.MetalLevel, premium float64) (deductible, oop float64) {
	cs, ok := costSharingByMetal[metal]
	if !ok {
		cs = bronzeCostSharing
	}
	p := decimal.NewFromFloat(premium)
	return p.Mul(decimal.NewFromInt(cs.deductible)).InexactFloat64(),
		p.Mul(decimal.NewFromInt(cs.oop)).InexactFloat64()
}

// MetalActuarialValue is the fallback actuarial value for a metal level
func MetalActuarialValue(metal types.MetalLevel) float64 {
	switch metal {
	case types.MetalPlatinum:
		return 0.9
	case types.MetalGold:
		return 0.8
	case types.MetalSilver:
		return 0.7
	}
	return 0.6
}

type rateEntry struct {
	effective string
	premium   float64
	stateCode string
	issuerID  string
}

// rateTable maps plan ids to their most recent rate, remembering first-seen order
type rateTable struct {
	byPlan map[string]rateEntry
	order  []string
}

func readRates(r io.Reader) (*rateTable, []error, error) {
	table := &rateTable{byPlan: make(map[string]rateEntry)}
	if r == nil {
		return table, nil, nil
	}
	skipped, err := records(r, func(line int, rw row) error {
		planID := rw.get("PlanId")
		if planID == "" {
			return nil
		}
		entry := rateEntry{
			effective: rw.get("RateEffectiveDate"),
			premium:   ParseMoney(rw.get("IndividualRate")),
			stateCode: rw.get("StateCode"),
			issuerID:  rw.get("IssuerId"),
		}
		current, seen := table.byPlan[planID]
		if !seen {
			table.order = append(table.order, planID)
		}
		if !seen || entry.effective > current.effective {
			table.byPlan[planID] = entry
		}
		return nil
	})
	if err != nil {
		return nil, skipped, fmt.Errorf("failed to read rate file: %w", err)
	}
	return table, skipped, nil
}

// premium returns the latest individual rate for a plan, trying the full plan id first
// and then its standard component id
func (t *rateTable) premium(ids ...string) float64 {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if entry, ok := t.byPlan[id]; ok {
			return entry.premium
		}
	}
	return 0
}

// MergePUF combines the plan attributes and rate public use files into plan features.
// Either reader may be nil. Without attributes the rate rows are used on their own.
// Output is de-duplicated by plan id, keeping the first occurrence.
func MergePUF(attributes, rates io.Reader) ([]types.PlanFeature, []error, error) {
	table, skipped, err := readRates(rates)
	if err != nil {
		return nil, skipped, err
	}

	var plans []types.PlanFeature
	if attributes != nil {
		var attrSkipped []error
		attrSkipped, err = records(attributes, func(line int, rw row) error {
			plan, ok, err := planFromAttributes(rw, table)
			if err != nil {
				return &RowError{Line: line, PlanID: plan.PlanID, Err: err}
			}
			if ok {
				plans = append(plans, plan)
			}
			return nil
		})
		skipped = append(skipped, attrSkipped...)
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read plan attributes file: %w", err)
		}
	} else {
		for _, planID := range table.order {
			plans = append(plans, planFromRate(planID, table.byPlan[planID]))
		}
	}

	return dedupe(plans), skipped, nil
}

func planFromAttributes(rw row, rates *rateTable) (types.PlanFeature, bool, error) {
	planID := rw.get("PlanId")
	if planID == "" {
		return types.PlanFeature{}, false, nil
	}
	plan := types.PlanFeature{
		PlanID:            planID,
		MonthlyPremium:    rates.premium(planID, rw.get("StandardComponentId")),
		HSAEligible:       parseYes(rw.get("IsHSAEligible")),
		StateCode:         rw.get("StateCode"),
		IssuerID:          rw.get("IssuerId"),
		PlanMarketingName: rw.get("PlanMarketingName"),
		PlanType:          rw.get("PlanType"),
		MarketCoverage:    rw.get("MarketCoverage"),
		DentalOnlyPlan:    parseYes(rw.get("DentalOnlyPlan")),
		ServiceAreaID:     rw.get("ServiceAreaId"),
		NetworkID:         rw.get("NetworkId"),
	}

	metal, err := metalOrDefault(rw.get("MetalLevel"))
	if err != nil {
		return plan, false, err
	}
	plan.MetalLevel = metal

	plan.ActuarialValue = parseActuarialValue(rw.get("IssuerActuarialValue"))
	if plan.ActuarialValue <= 0 {
		plan.ActuarialValue = parseActuarialValue(rw.get("AVCalculatorOutputNumber"))
	}
	if plan.ActuarialValue <= 0 {
		plan.ActuarialValue = MetalActuarialValue(metal)
	}
	plan.NetworkTier = types.NetworkTierFor(plan.ActuarialValue)
	plan.Deductible, plan.OutOfPocketMax = EstimateCostSharing(metal, plan.MonthlyPremium)

	if err := plan.Validate(); err != nil {
		return plan, false, err
	}
	return plan, true, nil
}

func planFromRate(planID string, rate rateEntry) types.PlanFeature {
	deductible, oop := EstimateCostSharing(types.MetalSilver, rate.premium)
	return types.PlanFeature{
		PlanID:            planID,
		MonthlyPremium:    rate.premium,
		Deductible:        deductible,
		OutOfPocketMax:    oop,
		ActuarialValue:    defaultActuarialValue,
		NetworkTier:       types.NetworkTierFor(defaultActuarialValue),
		StateCode:         rate.stateCode,
		IssuerID:          rate.issuerID,
		PlanMarketingName: "Plan " + planID,
		MetalLevel:        types.MetalSilver,
		PlanType:          "HMO",
		MarketCoverage:    "Individual",
	}
}

func dedupe(plans []types.PlanFeature) []types.PlanFeature {
	seen := make(map[string]bool, len(plans))
	out := make([]types.PlanFeature, 0, len(plans))
	for _, p := range plans {
		if seen[p.PlanID] {
			continue
		}
		seen[p.PlanID] = true
		out = append(out, p)
	}
	return out
}
