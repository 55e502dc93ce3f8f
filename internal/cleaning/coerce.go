package cleaning

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

var missingCode = table.Int(config.ComparisonMissing)

// CoerceBooleans turns boolean-like columns into integer columns. A column is
// boolean-like when it has at least one present value and every present value
// is true or false. The extra columns are coerced as well, whatever their kind.
// Missing cells become 3 in every coerced column. It returns the names of the
// coerced columns in table order.
func CoerceBooleans(t *table.Table, extra []string) ([]string, error) {
	forced := make(map[string]bool, len(extra))
	for _, name := range extra {
		if !t.HasColumn(name) {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("column %q not found", name)).
				WithContext("table", t.Name)
		}
		forced[name] = true
	}

	var coerced []string
	for idx, name := range t.Columns {
		if !forced[name] && t.ColumnKind(idx) != table.KindBool {
			continue
		}
		if err := coerceColumn(t, idx); err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("cannot coerce column %q", name), err).
				WithContext("table", t.Name)
		}
		coerced = append(coerced, name)
	}
	return coerced, nil
}

func coerceColumn(t *table.Table, idx int) error {
	for r, row := range t.Rows {
		c := row[idx]
		if !c.Valid {
			row[idx] = missingCode
			continue
		}
		v, err := toInt(c.Value)
		if err != nil {
			return fmt.Errorf("row %d: %w", r+1, err)
		}
		row[idx] = table.Int(v)
	}
	return nil
}

// toInt accepts boolean spellings and numbers. Fractions are truncated.
func toInt(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "y", "yes":
		return 1, nil
	case "false", "n", "no":
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %q is not boolean or numeric", s)
	}
	return int(f), nil
}
