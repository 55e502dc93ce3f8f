package cleaning

import "github.com/patrickmlong/Data-Intensive-PML/internal/table"

// National comparison values as published by CMS
const (
	BelowNational = "Below the National average"
	SameNational  = "Same as the National average"
	AboveNational = "Above the National average"
)

var comparisonOrdinals = map[string]table.Cell{
	BelowNational: table.Int(1),
	SameNational:  table.Int(2),
	AboveNational: table.Int(3),
}

// EncodeComparisons replaces the three national comparison strings with
// 1, 2 and 3 in every column. Other values are left alone.
func EncodeComparisons(t *table.Table) int {
	changed := 0
	for _, row := range t.Rows {
		for j, c := range row {
			if !c.Valid {
				continue
			}
			if v, ok := comparisonOrdinals[c.Value]; ok {
				row[j] = v
				changed++
			}
		}
	}
	return changed
}
