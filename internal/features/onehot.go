package features

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// OneHot expands every text column into one 0/1 column per distinct value,
// named <column>_<value>, with the values sorted. A missing cell sets none
// of them. Other columns keep their position ahead of the expanded ones;
// bool columns are rewritten as 1/0.
func OneHot(t *table.Table) (*table.Table, error) {
	kinds := make([]table.Kind, len(t.Columns))
	var keep, text []int
	for i := range t.Columns {
		kinds[i] = t.ColumnKind(i)
		if kinds[i] == table.KindText {
			text = append(text, i)
		} else {
			keep = append(keep, i)
		}
	}

	names := make([]string, 0, len(t.Columns))
	for _, i := range keep {
		names = append(names, t.Columns[i])
	}

	// offsets[k][value] is the output position of text column text[k] = value
	offsets := make([]map[string]int, len(text))
	for k, i := range text {
		seen := make(map[string]bool)
		var values []string
		for _, row := range t.Rows {
			if c := row[i]; c.Valid && !seen[c.Value] {
				seen[c.Value] = true
				values = append(values, c.Value)
			}
		}
		sort.Strings(values)

		offsets[k] = make(map[string]int, len(values))
		for _, v := range values {
			offsets[k][v] = len(names)
			names = append(names, t.Columns[i]+"_"+v)
		}
	}

	unique := make(map[string]bool, len(names))
	for _, n := range names {
		if unique[n] {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("encoded column %q collides with an existing column", n)).
				WithContext("table", t.Name)
		}
		unique[n] = true
	}

	out := table.New(t.Name, names...)
	out.Rows = make([][]table.Cell, len(t.Rows))
	zero := table.Int(0)
	for r, row := range t.Rows {
		newRow := make([]table.Cell, len(names))
		for j, i := range keep {
			c := row[i]
			if kinds[i] == table.KindBool && c.Valid {
				c = boolCell(c.Value)
			}
			newRow[j] = c
		}
		for j := len(keep); j < len(names); j++ {
			newRow[j] = zero
		}
		for k, i := range text {
			if c := row[i]; c.Valid {
				newRow[offsets[k][c.Value]] = table.Int(1)
			}
		}
		out.Rows[r] = newRow
	}
	return out, nil
}

func boolCell(v string) table.Cell {
	if strings.EqualFold(strings.TrimSpace(v), "true") {
		return table.Int(1)
	}
	return table.Int(0)
}
