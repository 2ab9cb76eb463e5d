package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

const profileJSON = `{"employee_profile": {"age": 35, "risk_score": 0.3, "budget_cap": 500}, "state_code": "CA"}`

func TestOptimizeCommand_RecommendsPlan(t *testing.T) {
	plans := writeFile(t, "plans.csv", plansCSV)
	profile := writeFile(t, "profile.json", profileJSON)
	outFile := filepath.Join(t.TempDir(), "out", "rec.json")

	output, err := executeCommand(t, "optimize", "--plans", plans, "--profile", profile, "--out", outFile)
	require.NoError(t, err, output)
	assert.Contains(t, output, "RECOMMENDED PLAN")
	assert.Contains(t, output, "CA-GOLD")
	assert.NotContains(t, output, "Breakdown")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var rec types.PlanRecommendation
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "CA-GOLD", rec.SelectedPlan.PlanID)
	assert.Equal(t, 3, rec.CandidatesScored)
}

func TestOptimizeCommand_VerboseBreakdown(t *testing.T) {
	plans := writeFile(t, "plans.csv", plansCSV)
	profile := writeFile(t, "profile.json", profileJSON)

	output, err := executeCommand(t, "optimize", "--plans", plans, "--profile", profile, "--verbose")
	require.NoError(t, err, output)
	assert.Contains(t, output, "Breakdown")
	assert.Contains(t, output, "coverage    0.800")
}

func TestOptimizeCommand_StateOverride(t *testing.T) {
	plans := writeFile(t, "plans.csv", plansCSV)
	profile := writeFile(t, "profile.json", profileJSON)

	output, err := executeCommand(t, "optimize", "--plans", plans, "--profile", profile, "--state", "tx")
	require.NoError(t, err, output)
	assert.Contains(t, output, "TX-SILVER")
}

func TestOptimizeCommand_DataDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plans.csv"), []byte(plansCSV), 0644))
	profile := writeFile(t, "profile.json", profileJSON)

	output, err := executeCommand(t, "optimize", "--plans", dir, "--profile", profile)
	require.NoError(t, err, output)
	assert.Contains(t, output, "CA-GOLD")
}

func TestOptimizeCommand_Errors(t *testing.T) {
	plans := writeFile(t, "plans.csv", plansCSV)

	tests := []struct {
		name    string
		args    func() []string
		wantErr string
	}{
		{
			name:    "missing profile flag",
			args:    func() []string { return []string{"optimize", "--plans", plans} },
			wantErr: "required",
		},
		{
			name: "profile fails schema",
			args: func() []string {
				p := writeFile(t, "bad.json", `{"employee_profile": {"age": 35, "risk_score": 2, "budget_cap": 500}, "state_code": "CA"}`)
				return []string{"optimize", "--plans", plans, "--profile", p}
			},
			wantErr: "invalid profile",
		},
		{
			name: "no plans in state",
			args: func() []string {
				p := writeFile(t, "p.json", profileJSON)
				return []string{"optimize", "--plans", plans, "--profile", p, "--state", "NV"}
			},
			wantErr: "no plans available for state NV",
		},
		{
			name: "budget too small",
			args: func() []string {
				p := writeFile(t, "p.json", `{"employee_profile": {"age": 35, "risk_score": 0.3, "budget_cap": 100}, "state_code": "CA"}`)
				return []string{"optimize", "--plans", plans, "--profile", p}
			},
			wantErr: "no plan fits the profile",
		},
		{
			name: "missing plans file",
			args: func() []string {
				p := writeFile(t, "p.json", profileJSON)
				return []string{"optimize", "--plans", "/nonexistent/plans.csv", "--profile", p}
			},
			wantErr: "failed to read plans",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args()...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
