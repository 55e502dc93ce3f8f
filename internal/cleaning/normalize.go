package cleaning

import (
	"strings"

	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// TidyColumnNames replaces spaces with underscores and lower-cases every column name
func TidyColumnNames(t *table.Table) {
	for i, c := range t.Columns {
		t.Columns[i] = TidyName(c)
	}
}

// TidyName is the single-name form of TidyColumnNames
func TidyName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
