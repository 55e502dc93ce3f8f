package table

import "strings"

// Kind classifies the present values of a column
type Kind int

const (
	// KindEmpty means the column has no present values
	KindEmpty Kind = iota
	// KindBool means every present value is true or false
	KindBool
	// KindNumeric means every present value parses as a number
	KindNumeric
	// KindText is anything else
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindNumeric:
		return "numeric"
	default:
		return "text"
	}
}

// IsBoolToken reports whether s spells true or false in any case
func IsBoolToken(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false":
		return true
	}
	return false
}

// ColumnKind classifies the column at idx
func (t *Table) ColumnKind(idx int) Kind {
	present := 0
	allBool, allNumeric := true, true
	for _, row := range t.Rows {
		c := row[idx]
		if !c.Valid {
			continue
		}
		present++
		if allBool && !IsBoolToken(c.Value) {
			allBool = false
		}
		if allNumeric {
			if _, ok := c.Float64(); !ok {
				allNumeric = false
			}
		}
		if !allBool && !allNumeric {
			return KindText
		}
	}

	switch {
	case present == 0:
		return KindEmpty
	case allBool:
		return KindBool
	case allNumeric:
		return KindNumeric
	default:
		return KindText
	}
}

// ColumnKinds classifies every column, keyed by name
func (t *Table) ColumnKinds() map[string]Kind {
	out := make(map[string]Kind, len(t.Columns))
	for i, c := range t.Columns {
		out[c] = t.ColumnKind(i)
	}
	return out
}
