package merge

import (
	"fmt"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// Column names used by the region binner
const (
	StateColumn  = "state"
	RegionColumn = "region"
)

// BinStatesToRegion appends a region column looked up from the state column.
// A missing state is looked up as the empty string. States absent from the
// lookup get a missing region.
func BinStatesToRegion(t *table.Table, lookup map[string]string) error {
	idx := t.ColumnIndex(StateColumn)
	if idx < 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("column %q not found", StateColumn)).
			WithContext("table", t.Name)
	}
	if t.HasColumn(RegionColumn) {
		return apperrors.NewAppValidationError(fmt.Sprintf("column %q already present", RegionColumn)).
			WithContext("table", t.Name)
	}

	regions := make([]table.Cell, t.Len())
	for i, row := range t.Rows {
		state := ""
		if row[idx].Valid {
			state = row[idx].Value
		}
		if region, ok := lookup[state]; ok {
			regions[i] = table.String(region)
		} else {
			regions[i] = table.Null()
		}
	}
	return t.AddColumn(RegionColumn, regions)
}
