package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/benefit-optimizer/internal/types"
)

// maxParallelFiles bounds concurrent CSV parsing in LoadDirectory
const maxParallelFiles = 4

// Result is the outcome of loading a data directory
type Result struct {
	Plans   []types.PlanFeature
	Skipped []error
	Sources []*Metadata
}

// PUFPaths returns the expected plan attributes and rate file paths for a plan year
func PUFPaths(dir, planYear string) (attributes, rates string) {
	return filepath.Join(dir, fmt.Sprintf("plan-attributes-puf-%s.csv", planYear)),
		filepath.Join(dir, fmt.Sprintf("rate-puf-%s.csv", planYear))
}

// LoadDirectory loads plans from dir. The plan attributes and rate public use files for
// planYear are merged when either exists; otherwise every *.csv file is parsed as a generic
// plan file.
func LoadDirectory(ctx context.Context, dir, planYear string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data directory %s does not exist", dir)
		}
		return nil, fmt.Errorf("failed to stat data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	attrPath, ratePath := PUFPaths(dir, planYear)
	attrData, attrMeta, err := readOptional(attrPath, KindPlanAttributes)
	if err != nil {
		return nil, err
	}
	rateData, rateMeta, err := readOptional(ratePath, KindRate)
	if err != nil {
		return nil, err
	}
	if attrData != nil || rateData != nil {
		return loadPUF(attrData, rateData, attrMeta, rateMeta)
	}
	return loadGeneric(ctx, dir)
}

func readOptional(path, kind string) ([]byte, *Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, NewMetadata(data, path, kind), nil
}

func loadPUF(attrData, rateData []byte, attrMeta, rateMeta *Metadata) (*Result, error) {
	var attributes, rates io.Reader
	result := &Result{}
	if attrData != nil {
		attributes = bytes.NewReader(attrData)
		result.Sources = append(result.Sources, attrMeta)
	}
	if rateData != nil {
		rates = bytes.NewReader(rateData)
		result.Sources = append(result.Sources, rateMeta)
	}

	plans, skipped, err := MergePUF(attributes, rates)
	if err != nil {
		return nil, err
	}
	result.Plans = plans
	result.Skipped = skipped
	for _, m := range result.Sources {
		m.Rows = len(plans)
		m.Skipped = len(skipped)
	}
	return result, nil
}

func loadGeneric(ctx context.Context, dir string) (*Result, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list csv files: %w", err)
	}
	sort.Strings(paths)

	type fileResult struct {
		plans   []types.PlanFeature
		skipped []error
		meta    *Metadata
	}
	results := make([]fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			plans, skipped := ParsePlansCSV(bytes.NewReader(data))
			meta := NewMetadata(data, path, KindGeneric)
			meta.Rows = len(plans)
			meta.Skipped = len(skipped)
			for j, e := range skipped {
				skipped[j] = fmt.Errorf("%s: %w", filepath.Base(path), e)
			}
			results[i] = fileResult{plans: plans, skipped: skipped, meta: meta}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	var plans []types.PlanFeature
	for _, r := range results {
		plans = append(plans, r.plans...)
		result.Skipped = append(result.Skipped, r.skipped...)
		result.Sources = append(result.Sources, r.meta)
	}
	result.Plans = dedupe(plans)
	return result, nil
}

// benefitCatalog is the object form of a benefit catalog file
type benefitCatalog struct {
	Benefits []types.Benefit `json:"benefits"`
}

// LoadBenefits reads a JSON benefit catalog, either a bare array or {"benefits": [...]},
// and validates every entry.
func LoadBenefits(r io.Reader) ([]types.Benefit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read benefit catalog: %w", err)
	}

	var benefits []types.Benefit
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &benefits)
	} else {
		var catalog benefitCatalog
		err = json.Unmarshal(trimmed, &catalog)
		benefits = catalog.Benefits
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse benefit catalog JSON: %w", err)
	}

	seen := make(map[string]bool, len(benefits))
	for i := range benefits {
		b := &benefits[i]
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("benefit %d (%s): invalid %s: %w", i, b.ID, types.InvalidField(err), err)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("benefit %d: duplicate id %s", i, b.ID)
		}
		seen[b.ID] = true
	}
	return benefits, nil
}
