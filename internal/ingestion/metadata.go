package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata describes one ingested source file
type Metadata struct {
	Path      string `json:"path"`
	Kind      string `json:"kind"`      // plan_attributes, rate, generic or benefits
	Timestamp string `json:"timestamp"` // RFC3339 format
	Hash      string `json:"hash"`      // SHA256 hex digest of the raw file
	Rows      int    `json:"rows"`
	Skipped   int    `json:"skipped"`
}

// Source kinds
const (
	KindPlanAttributes = "plan_attributes"
	KindRate           = "rate"
	KindGeneric        = "generic"
	KindBenefits       = "benefits"
)

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(content []byte, path, kind string) *Metadata {
	return &Metadata{
		Path:      path,
		Kind:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to pretty-printed JSON
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
