package cleaning

import "github.com/patrickmlong/Data-Intensive-PML/internal/table"

// NormalizeMissing marks every cell equal to one of the sentinels as missing.
// Matching is exact; "not available" does not match "Not Available".
// It returns the number of cells changed.
func NormalizeMissing(t *table.Table, sentinels []string) int {
	if len(sentinels) == 0 {
		return 0
	}
	set := make(map[string]bool, len(sentinels))
	for _, s := range sentinels {
		set[s] = true
	}

	changed := 0
	for _, row := range t.Rows {
		for j, c := range row {
			if c.Valid && set[c.Value] {
				row[j] = table.Null()
				changed++
			}
		}
	}
	return changed
}
