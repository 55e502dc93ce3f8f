package features

import (
	"math"
	"math/rand"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// Split holds row positions of the training and test sets
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles the positions 0..n-1 with seed and assigns the
// first ceil(n*testFraction) of them to the test set. Both sets are non-empty.
func TrainTestSplit(n int, testFraction float64, seed int64) (Split, error) {
	if n < 2 {
		return Split{}, apperrors.NewAppValidationError("at least two rows are required to split").
			WithContext("rows", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return Split{}, apperrors.NewAppValidationError("test fraction must be between 0 and 1").
			WithContext("test_fraction", testFraction)
	}

	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{Test: perm[:nTest], Train: perm[nTest:]}, nil
}

// Split returns the training and test subsets of m
func (m *ModelInput) Split(s Split) (train, test *ModelInput) {
	return m.subset(s.Train), m.subset(s.Test)
}

func (m *ModelInput) subset(positions []int) *ModelInput {
	return &ModelInput{
		X:          rows(m.X, positions),
		Target:     cells(m.Target, positions),
		IDs:        cells(m.IDs, positions),
		TargetName: m.TargetName,
		IDName:     m.IDName,
	}
}

func rows(t *table.Table, positions []int) *table.Table {
	out := table.New(t.Name, t.Columns...)
	out.Rows = make([][]table.Cell, len(positions))
	for i, p := range positions {
		out.Rows[i] = t.Rows[p]
	}
	return out
}

func cells(in []table.Cell, positions []int) []table.Cell {
	out := make([]table.Cell, len(positions))
	for i, p := range positions {
		out[i] = in[p]
	}
	return out
}
