// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// BenefitType is the closed set of benefit categories a bundle can cover
type BenefitType string

// Benefit categories
const (
	BenefitHealthInsurance BenefitType = "health_insurance"
	BenefitDental          BenefitType = "dental"
	BenefitVision          BenefitType = "vision"
	BenefitPrescription    BenefitType = "prescription"
	BenefitMentalHealth    BenefitType = "mental_health"
	BenefitWellness        BenefitType = "wellness"
)

// AllBenefitTypes lists every benefit category in declaration order
var AllBenefitTypes = []BenefitType{
	BenefitHealthInsurance,
	BenefitDental,
	BenefitVision,
	BenefitPrescription,
	BenefitMentalHealth,
	BenefitWellness,
}

// Valid reports whether t is one of the known benefit categories
func (t BenefitType) Valid() bool {
	for _, known := range AllBenefitTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseBenefitType converts a raw string into a BenefitType.
// Matching is case-insensitive and tolerates surrounding whitespace.
func ParseBenefitType(s string) (BenefitType, error) {
	t := BenefitType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown benefit type %q", s)
	}
	return t, nil
}

// CoverageLevel describes who a bundle covers
type CoverageLevel string

// Coverage levels
const (
	CoverageIndividual          CoverageLevel = "individual"
	CoverageFamily              CoverageLevel = "family"
	CoverageEmployeeAndSpouse   CoverageLevel = "employee_and_spouse"
	CoverageEmployeeAndChildren CoverageLevel = "employee_and_children"
)

// Benefit is a single purchasable benefit offering from a provider
type Benefit struct {
	ID                   string         `json:"id" validate:"required"`
	Name                 string         `json:"name" validate:"required"`
	Type                 BenefitType    `json:"type" validate:"required,oneof=health_insurance dental vision prescription mental_health wellness"`
	Provider             string         `json:"provider" validate:"required"`
	MonthlyPremium       float64        `json:"monthly_premium" validate:"gte=0"`
	AnnualDeductible     float64        `json:"annual_deductible" validate:"gte=0"`
	CoinsuranceRate      float64        `json:"coinsurance_rate" validate:"gte=0,lte=1"`
	CopayAmount          *float64       `json:"copay_amount,omitempty" validate:"omitempty,gte=0"`
	MaxOutOfPocket       float64        `json:"max_out_of_pocket" validate:"gte=0"`
	CoverageDetails      map[string]any `json:"coverage_details,omitempty"`
	NetworkType          string         `json:"network_type,omitempty"`
	PrescriptionCoverage bool           `json:"prescription_coverage"`
	MentalHealthCoverage bool           `json:"mental_health_coverage"`
	WellnessBenefits     []string       `json:"wellness_benefits,omitempty"`
}

// Validate validates the Benefit using the validator.
func (b *Benefit) Validate() error {
	return validate.Struct(b)
}
