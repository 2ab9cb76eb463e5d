package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// RowError reports a CSV record that could not be turned into a plan
type RowError struct {
	Line   int
	PlanID string
	Err    error
}

func (e *RowError) Error() string {
	if e.PlanID != "" {
		return fmt.Sprintf("line %d (plan %s): %v", e.Line, e.PlanID, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Column aliases for generic plan CSV files; the first present alias wins
var (
	colPlanID         = []string{"PlanId", "plan_id"}
	colPremium        = []string{"IndividualRate", "individual_rate", "MonthlyPremium"}
	colDeductible     = []string{"Deductible", "deductible", "AnnualDeductible"}
	colOutOfPocketMax = []string{"OutOfPocketMax", "out_of_pocket_max", "MaxOutOfPocket"}
	colActuarialValue = []string{"ActuarialValue", "actuarial_value", "AVCalculatorOutputNumber"}
	colHSAEligible    = []string{"IsHSAEligible", "is_hsa_eligible"}
	colStateCode      = []string{"StateCode", "state_code"}
	colIssuerID       = []string{"IssuerId", "issuer_id"}
	colMarketingName  = []string{"PlanMarketingName", "plan_marketing_name"}
	colMetalLevel     = []string{"MetalLevel", "metal_level"}
	colPlanType       = []string{"PlanType", "plan_type"}
	colMarketCoverage = []string{"MarketCoverage", "market_coverage"}
	colDentalOnly     = []string{"DentalOnlyPlan", "dental_only_plan"}
	colServiceAreaID  = []string{"ServiceAreaId", "service_area_id"}
	colNetworkID      = []string{"NetworkId", "network_id"}
)

// records reads a CSV stream and calls fn for every data record with its 1-based line number.
// Malformed records are reported and skipped; a header that cannot be read is fatal.
func records(r io.Reader, fn func(line int, rw row) error) ([]error, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv input is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	index := newIndex(header)

	var skipped []error
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, &RowError{Line: perr.Line, Err: err})
				continue
			}
			return skipped, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, row{index: index, record: record}); err != nil {
			skipped = append(skipped, err)
		}
	}
	return skipped, nil
}

// ParsePlansCSV parses a generic plan CSV with flexible column names.
// Rows without a plan id are ignored; any other bad row is reported in the returned errors
// and never aborts the file.
func ParsePlansCSV(r io.Reader) ([]types.PlanFeature, []error) {
	var plans []types.PlanFeature
	skipped, err := records(r, func(line int, rw row) error {
		plan, ok, err := planFromRow(rw)
		if err != nil {
			return &RowError{Line: line, PlanID: plan.PlanID, Err: err}
		}
		if ok {
			plans = append(plans, plan)
		}
		return nil
	})
	if err != nil {
		skipped = append(skipped, err)
	}
	return plans, skipped
}

func planFromRow(rw row) (types.PlanFeature, bool, error) {
	planID := rw.get(colPlanID...)
	if planID == "" {
		return types.PlanFeature{}, false, nil
	}

	av := defaultActuarialValue
	if raw, ok := rw.lookup(colActuarialValue...); ok && cleanString(raw) != "" {
		av = parseActuarialValue(raw)
	}

	plan := types.PlanFeature{
		PlanID:            planID,
		MonthlyPremium:    ParseMoney(rw.get(colPremium...)),
		Deductible:        ParseMoney(rw.get(colDeductible...)),
		OutOfPocketMax:    ParseMoney(rw.get(colOutOfPocketMax...)),
		HSAEligible:       parseYes(rw.get(colHSAEligible...)),
		ActuarialValue:    av,
		NetworkTier:       types.NetworkTierFor(av),
		StateCode:         rw.get(colStateCode...),
		IssuerID:          rw.get(colIssuerID...),
		PlanMarketingName: rw.get(colMarketingName...),
		PlanType:          rw.get(colPlanType...),
		MarketCoverage:    rw.get(colMarketCoverage...),
		DentalOnlyPlan:    parseYes(rw.get(colDentalOnly...)),
		ServiceAreaID:     rw.get(colServiceAreaID...),
		NetworkID:         rw.get(colNetworkID...),
	}

	metal, err := metalOrDefault(rw.get(colMetalLevel...))
	if err != nil {
		return plan, false, err
	}
	plan.MetalLevel = metal

	if err := plan.Validate(); err != nil {
		return plan, false, err
	}
	return plan, true, nil
}

func metalOrDefault(raw string) (types.MetalLevel, error) {
	if raw == "" {
		return types.MetalSilver, nil
	}
	return types.ParseMetalLevel(raw)
}
