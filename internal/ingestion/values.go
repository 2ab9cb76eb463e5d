// Package ingestion loads plan and benefit catalogs from CMS public use files and JSON.
package ingestion

import (
	"strings"

	"github.com/shopspring/decimal"
)

// defaultActuarialValue is used when a row carries no actuarial value at all
const defaultActuarialValue = 0.7

var moneyCleaner = strings.NewReplacer("$", "", ",", "", " ", "", "%", "")

// ParseMoney parses a currency or numeric cell. Empty, nan and unparseable values yield 0.
func ParseMoney(raw string) float64 {
	cleaned := moneyCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" || strings.EqualFold(cleaned, "nan") {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// parseActuarialValue accepts fractions (0.72) and percentages (72.1 or "72.1%")
func parseActuarialValue(raw string) float64 {
	av := ParseMoney(raw)
	if av > 1 && av <= 100 {
		av = decimal.NewFromFloat(av).Div(decimal.NewFromInt(100)).InexactFloat64()
	}
	return av
}

func parseYes(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "yes")
}

// cleanString treats pandas-style "nan" placeholders as empty
func cleanString(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// row gives alias-aware access to one CSV record
type row struct {
	index  map[string]int
	record []string
}

func newIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}

// lookup returns the value of the first alias whose column exists in the header
func (r row) lookup(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if i, ok := r.index[alias]; ok {
			if i < len(r.record) {
				return r.record[i], true
			}
			return "", true
		}
	}
	return "", false
}

func (r row) get(aliases ...string) string {
	v, _ := r.lookup(aliases...)
	return cleanString(v)
}
