// Package readmission reshapes the Hospital Readmissions Reduction Program
// table from one row per provider and measure into one row per provider.
package readmission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// DefaultAggregateColumns are summed per provider and measure
var DefaultAggregateColumns = []string{
	"number_of_readmissions",
	"number_of_discharges",
	"excess_readmission_ratio",
	"predicted_readmission_rate",
	"expected_readmission_rate",
}

// PivotOptions names the columns the pivot works on
type PivotOptions struct {
	Key              string
	MeasureColumn    string
	AggregateColumns []string
	// SuppressedToken counts as zero when summing
	SuppressedToken string
	// SkipTokens are ignored when summing, like missing cells
	SkipTokens []string
}

// DefaultPivotOptions returns the options for the CMS readmissions export
func DefaultPivotOptions() PivotOptions {
	return PivotOptions{
		Key:              "provider_number",
		MeasureColumn:    "measure_name",
		AggregateColumns: DefaultAggregateColumns,
		SuppressedToken:  config.SuppressedCount,
	}
}

type providerAgg struct {
	first []table.Cell
	sums  map[string]float64
	seen  map[string]bool
}

// Pivot returns a table with one row per provider, in order of first
// appearance. Non-aggregate columns keep the provider's first value. Each
// aggregate column becomes one column per measure, named
// <measure>_<aggregate> with the measure lower-cased and dashes turned into
// underscores, holding the sum over the provider's rows. Measures are sorted.
// A provider with no value for a measure gets a missing cell.
func Pivot(t *table.Table, opts PivotOptions) (*table.Table, error) {
	keyIdx := t.ColumnIndex(opts.Key)
	if keyIdx < 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("key column %q not found", opts.Key)).
			WithContext("table", t.Name)
	}
	measureIdx := t.ColumnIndex(opts.MeasureColumn)
	if measureIdx < 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("measure column %q not found", opts.MeasureColumn)).
			WithContext("table", t.Name)
	}
	aggIdx := make([]int, len(opts.AggregateColumns))
	for i, col := range opts.AggregateColumns {
		aggIdx[i] = t.ColumnIndex(col)
		if aggIdx[i] < 0 {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("aggregate column %q not found", col)).
				WithContext("table", t.Name)
		}
	}

	skip := map[int]bool{measureIdx: true}
	for _, idx := range aggIdx {
		skip[idx] = true
	}
	var keepIdx []int
	var keepCols []string
	for i, c := range t.Columns {
		if !skip[i] {
			keepIdx = append(keepIdx, i)
			keepCols = append(keepCols, c)
		}
	}

	skipTokens := make(map[string]bool, len(opts.SkipTokens))
	for _, tok := range opts.SkipTokens {
		if tok != opts.SuppressedToken {
			skipTokens[tok] = true
		}
	}

	measureSet := make(map[string]bool)
	providers := make(map[table.Cell]*providerAgg)
	var order []table.Cell

	for r, row := range t.Rows {
		key := row[keyIdx]
		agg, ok := providers[key]
		if !ok {
			first := make([]table.Cell, len(keepIdx))
			for j, idx := range keepIdx {
				first[j] = row[idx]
			}
			agg = &providerAgg{first: first, sums: map[string]float64{}, seen: map[string]bool{}}
			providers[key] = agg
			order = append(order, key)
		}

		measure := row[measureIdx]
		if !measure.Valid {
			continue
		}
		measureSet[measure.Value] = true

		for i, idx := range aggIdx {
			v, present, err := aggregateValue(row[idx], opts.SuppressedToken, skipTokens)
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("row %d column %q", r+1, opts.AggregateColumns[i]), err).
					WithContext("table", t.Name)
			}
			if !present {
				continue
			}
			name := PivotColumnName(measure.Value, opts.AggregateColumns[i])
			agg.sums[name] += v
			agg.seen[name] = true
		}
	}

	measures := make([]string, 0, len(measureSet))
	for m := range measureSet {
		measures = append(measures, m)
	}
	sort.Strings(measures)

	pivotCols := make([]string, 0, len(measures)*len(opts.AggregateColumns))
	for _, col := range opts.AggregateColumns {
		for _, m := range measures {
			pivotCols = append(pivotCols, PivotColumnName(m, col))
		}
	}

	out := table.New(t.Name, append(keepCols, pivotCols...)...)
	for _, key := range order {
		agg := providers[key]
		row := make([]table.Cell, 0, out.Width())
		row = append(row, agg.first...)
		for _, name := range pivotCols {
			if agg.seen[name] {
				row = append(row, table.Float(agg.sums[name]))
			} else {
				row = append(row, table.Null())
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// PivotColumnName builds the output column for a measure and aggregate
func PivotColumnName(measure, aggregate string) string {
	return strings.ReplaceAll(strings.ToLower(measure), "-", "_") + "_" + aggregate
}

func aggregateValue(c table.Cell, suppressed string, skip map[string]bool) (float64, bool, error) {
	if !c.Valid || skip[c.Value] {
		return 0, false, nil
	}
	if suppressed != "" && c.Value == suppressed {
		return 0, true, nil
	}
	f, ok := c.Float64()
	if !ok {
		return 0, false, fmt.Errorf("value %q is not numeric", c.Value)
	}
	return f, true, nil
}
