package cleaning

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// DropExcludedColumns removes every column whose name matches any of the
// patterns. Patterns are regular expressions matched anywhere in the name, so
// "date" drops both start_date and end_date.
func DropExcludedColumns(t *table.Table, patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}

	re, err := regexp.Compile(strings.Join(patterns, "|"))
	if err != nil {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid exclude pattern: %v", err)).
			WithContext("patterns", patterns)
	}

	var drop []string
	for _, c := range t.Columns {
		if re.MatchString(c) {
			drop = append(drop, c)
		}
	}
	t.DropColumns(drop...)
	return nil
}
