package features

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// Column names accepted in an importance file
var (
	featureColumns    = []string{"features", "feature"}
	importanceColumns = []string{"importances", "importance"}
)

// Importance is the weight the trained model gives a feature
type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"importance"`
}

// RankImportances pairs names with scores, keeps positive scores and sorts
// them in descending order. Ties keep their input order.
func RankImportances(names []string, scores []float64) ([]Importance, error) {
	if len(names) != len(scores) {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("%d feature names for %d importances", len(names), len(scores)))
	}

	ranked := make([]Importance, 0, len(names))
	for i, name := range names {
		if s := scores[i]; s > 0 && !math.IsInf(s, 0) {
			ranked = append(ranked, Importance{Feature: name, Score: s})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked, nil
}

// ReadImportances reads feature names and scores from a CSV or XLSX file
// with a features column and an importances column. Rows without a score
// are returned as NaN.
func ReadImportances(path string) ([]string, []float64, error) {
	t, err := table.ReadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, nil, apperrors.NewParsingError("failed to read importances", err).WithContext("path", path)
	}

	fi := firstColumn(t, featureColumns)
	si := firstColumn(t, importanceColumns)
	if fi < 0 || si < 0 {
		return nil, nil, apperrors.NewAppValidationError("importance file needs features and importances columns").
			WithContext("path", path).
			WithContext("columns", t.Columns)
	}

	names := make([]string, 0, t.Len())
	scores := make([]float64, 0, t.Len())
	for i, row := range t.Rows {
		if !row[fi].Valid {
			return nil, nil, apperrors.NewParsingError("missing feature name", nil).
				WithContext("path", path).
				WithContext("row", i+1)
		}
		score := math.NaN()
		if row[si].Valid {
			v, ok := row[si].Float64()
			if !ok {
				return nil, nil, apperrors.NewParsingError(fmt.Sprintf("invalid importance %q", row[si].Value), nil).
					WithContext("path", path).
					WithContext("row", i+1)
			}
			score = v
		}
		names = append(names, row[fi].Value)
		scores = append(scores, score)
	}
	return names, scores, nil
}

// WriteImportances writes ranked importances as a two-column CSV
func WriteImportances(w io.Writer, ranked []Importance) error {
	t := table.New("importances", featureColumns[0], importanceColumns[0])
	for _, imp := range ranked {
		t.Rows = append(t.Rows, []table.Cell{
			table.String(imp.Feature),
			table.String(strconv.FormatFloat(imp.Score, 'g', -1, 64)),
		})
	}
	return table.WriteCSV(w, t, table.WriteOptions{})
}

func firstColumn(t *table.Table, names []string) int {
	for _, n := range names {
		if i := t.ColumnIndex(n); i >= 0 {
			return i
		}
	}
	return -1
}
