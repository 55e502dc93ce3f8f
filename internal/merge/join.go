// Package merge joins the cleaned per-dataset tables into one analytic table
// keyed by provider and enriches it with a timezone region.
package merge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// ProviderNumberColumn is the provider key used by the readmissions export
const ProviderNumberColumn = "provider_number"

// Suffixes appended to non-key columns present on both sides of a join
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// MergeTables renames provider_number to key in every table and full outer
// joins the tables in order.
func MergeTables(tables []*table.Table, key string) (*table.Table, error) {
	if len(tables) == 0 {
		return nil, apperrors.NewAppValidationError("no tables to merge")
	}

	renamed := make([]*table.Table, len(tables))
	for i, t := range tables {
		c := t.Clone()
		if !c.HasColumn(key) {
			c.RenameColumn(ProviderNumberColumn, key)
		}
		renamed[i] = c
	}

	out := renamed[0]
	for _, next := range renamed[1:] {
		joined, err := OuterJoin(out, next, key)
		if err != nil {
			return nil, err
		}
		out = joined
	}
	out.Name = "merged"
	return out, nil
}

type keyGroup struct {
	cell  table.Cell
	left  [][]table.Cell
	right [][]table.Cell
}

// OuterJoin returns every row of left and right matched on key. Rows sharing a
// key pair up as a cross product; unmatched rows are padded with missing cells.
// Integer keys are compared by value, so "010001" matches "10001". The result
// is sorted by key, numerically when every key is an integer. Missing keys sort
// last.
func OuterJoin(left, right *table.Table, key string) (*table.Table, error) {
	li := left.ColumnIndex(key)
	if li < 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("join key %q not found", key)).
			WithContext("table", left.Name)
	}
	ri := right.ColumnIndex(key)
	if ri < 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("join key %q not found", key)).
			WithContext("table", right.Name)
	}

	rightCols := make(map[string]bool, len(right.Columns))
	for _, c := range right.Columns {
		rightCols[c] = true
	}
	leftCols := make(map[string]bool, len(left.Columns))
	for _, c := range left.Columns {
		leftCols[c] = true
	}

	columns := make([]string, 0, left.Width()+right.Width()-1)
	for _, c := range left.Columns {
		if c != key && rightCols[c] {
			c += LeftSuffix
		}
		columns = append(columns, c)
	}
	var rightIdx []int
	for j, c := range right.Columns {
		if j == ri {
			continue
		}
		if leftCols[c] {
			c += RightSuffix
		}
		columns = append(columns, c)
		rightIdx = append(rightIdx, j)
	}

	groups := make(map[string]*keyGroup)
	var keys []string
	group := func(c table.Cell) *keyGroup {
		k := normalizeKey(c)
		g, ok := groups[k.id]
		if !ok {
			g = &keyGroup{cell: k.cell}
			groups[k.id] = g
			keys = append(keys, k.id)
		}
		return g
	}
	for _, row := range left.Rows {
		g := group(row[li])
		g.left = append(g.left, row)
	}
	for _, row := range right.Rows {
		g := group(row[ri])
		g.right = append(g.right, row)
	}
	sortKeys(keys, groups)

	out := table.New(left.Name, columns...)
	for _, k := range keys {
		g := groups[k]
		lefts := g.left
		if len(lefts) == 0 {
			lefts = [][]table.Cell{nil}
		}
		rights := g.right
		if len(rights) == 0 {
			rights = [][]table.Cell{nil}
		}
		for _, l := range lefts {
			for _, r := range rights {
				row := make([]table.Cell, 0, len(columns))
				if l == nil {
					row = append(row, make([]table.Cell, left.Width())...)
				} else {
					row = append(row, l...)
				}
				row[li] = g.cell
				for _, j := range rightIdx {
					if r == nil {
						row = append(row, table.Null())
					} else {
						row = append(row, r[j])
					}
				}
				out.Rows = append(out.Rows, row)
			}
		}
	}
	return out, nil
}

type joinKey struct {
	id   string
	cell table.Cell
}

// missingKeyID cannot collide with a real value because real ids start with a type tag
const missingKeyID = "\x00missing"

func normalizeKey(c table.Cell) joinKey {
	if !c.Valid {
		return joinKey{id: missingKeyID, cell: c}
	}
	v := strings.TrimSpace(c.Value)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		s := strconv.FormatInt(n, 10)
		return joinKey{id: "i" + s, cell: table.String(s)}
	}
	return joinKey{id: "s" + c.Value, cell: c}
}

func sortKeys(keys []string, groups map[string]*keyGroup) {
	numeric := true
	for _, k := range keys {
		if k != missingKeyID && !strings.HasPrefix(k, "i") {
			numeric = false
			break
		}
	}

	sort.SliceStable(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka == missingKeyID || kb == missingKeyID {
			return kb == missingKeyID && ka != missingKeyID
		}
		va, vb := groups[ka].cell.Value, groups[kb].cell.Value
		if numeric {
			na, _ := strconv.ParseInt(va, 10, 64)
			nb, _ := strconv.ParseInt(vb, 10, 64)
			return na < nb
		}
		return va < vb
	})
}
