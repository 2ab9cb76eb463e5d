// Package types provides type definitions for structured data used throughout the benefit-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// MetalLevel is the marketplace metal tier of a health plan
type MetalLevel string

// Metal levels as published in the marketplace public use files
const (
	MetalBronze       MetalLevel = "Bronze"
	MetalSilver       MetalLevel = "Silver"
	MetalGold         MetalLevel = "Gold"
	MetalPlatinum     MetalLevel = "Platinum"
	MetalCatastrophic MetalLevel = "Catastrophic"
)

// ParseMetalLevel converts a raw metal level string into a MetalLevel.
// "Expanded Bronze" is folded into Bronze.
func ParseMetalLevel(s string) (MetalLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bronze", "expanded bronze":
		return MetalBronze, nil
	case "silver":
		return MetalSilver, nil
	case "gold":
		return MetalGold, nil
	case "platinum":
		return MetalPlatinum, nil
	case "catastrophic":
		return MetalCatastrophic, nil
	}
	return "", fmt.Errorf("unknown metal level %q", s)
}

// NetworkTier is the coverage tier derived from a plan's actuarial value
type NetworkTier string

// Network tiers
const (
	TierBronze   NetworkTier = "bronze"
	TierSilver   NetworkTier = "silver"
	TierGold     NetworkTier = "gold"
	TierPlatinum NetworkTier = "platinum"
)

// NetworkTierFor maps an actuarial value onto a network tier
func NetworkTierFor(actuarialValue float64) NetworkTier {
	switch {
	case actuarialValue >= 0.9:
		return TierPlatinum
	case actuarialValue >= 0.8:
		return TierGold
	case actuarialValue >= 0.7:
		return TierSilver
	default:
		return TierBronze
	}
}

// ParseNetworkTier converts a raw string into a NetworkTier
func ParseNetworkTier(s string) (NetworkTier, error) {
	t := NetworkTier(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return t, nil
	}
	return "", fmt.Errorf("unknown network tier %q", s)
}

// PlanFeature is a marketplace health plan as loaded from the public use files
type PlanFeature struct {
	PlanID            string      `json:"plan_id" validate:"required"`
	MonthlyPremium    float64     `json:"monthly_premium" validate:"gte=0"`
	Deductible        float64     `json:"deductible" validate:"gte=0"`
	OutOfPocketMax    float64     `json:"out_of_pocket_max" validate:"gte=0"`
	HSAEligible       bool        `json:"hsa_eligible"`
	ActuarialValue    float64     `json:"actuarial_value" validate:"gte=0,lte=1"`
	NetworkTier       NetworkTier `json:"network_tier"`
	StateCode         string      `json:"state_code"`
	IssuerID          string      `json:"issuer_id"`
	PlanMarketingName string      `json:"plan_marketing_name"`
	MetalLevel        MetalLevel  `json:"metal_level"`
	PlanType          string      `json:"plan_type"`
	MarketCoverage    string      `json:"market_coverage"`
	DentalOnlyPlan    bool        `json:"dental_only_plan"`
	ServiceAreaID     string      `json:"service_area_id,omitempty"`
	NetworkID         string      `json:"network_id,omitempty"`
}

// Validate validates the PlanFeature using the validator.
func (p *PlanFeature) Validate() error {
	return validate.Struct(p)
}
