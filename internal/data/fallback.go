package data

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/contactkeval/option-chain/internal/logger"
)

// FallbackTable is an immutable symbol -> default price map used when no live
// quote can be obtained. The zero value is an empty table.
type FallbackTable struct {
	prices map[string]float64
}

// NewFallbackTable copies prices into a new table. Symbols are normalised and
// non-positive or non-finite prices are dropped.
func NewFallbackTable(prices map[string]float64) FallbackTable {
	out := make(map[string]float64, len(prices))
	for sym, p := range prices {
		key := NormalizeSymbol(sym)
		if key == "" || !(p > 0) || math.IsInf(p, 0) {
			logger.Warnf("fallback: dropping invalid entry %q=%v", sym, p)
			continue
		}
		out[key] = p
	}
	return FallbackTable{prices: out}
}

// Lookup returns the default price for symbol.
func (t FallbackTable) Lookup(symbol string) (float64, bool) {
	p, ok := t.prices[NormalizeSymbol(symbol)]
	return p, ok
}

// Merge returns a new table holding t's entries overlaid with extra.
func (t FallbackTable) Merge(extra map[string]float64) FallbackTable {
	merged := make(map[string]float64, len(t.prices)+len(extra))
	for k, v := range t.prices {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return NewFallbackTable(merged)
}

// Len is the number of priced symbols.
func (t FallbackTable) Len() int { return len(t.prices) }

// Symbols lists the table's symbols in sorted order.
func (t FallbackTable) Symbols() []string {
	out := make([]string, 0, len(t.prices))
	for k := range t.prices {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadFallbackCSV reads "symbol,price" rows. A header row and rows whose
// price does not parse are skipped.
func LoadFallbackCSV(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fallback file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read fallback csv: %w", err)
	}

	out := make(map[string]float64, len(records))
	for i, row := range records {
		if len(row) < 2 {
			continue
		}
		symbol := NormalizeSymbol(row[0])
		price, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			if i > 0 {
				logger.Debugf("fallback csv: skipping row %d: %v", i+1, err)
			}
			continue
		}
		out[symbol] = price
	}
	return out, nil
}
