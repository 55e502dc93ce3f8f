package features

import (
	"fmt"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// DefaultDropColumns are derived from the target and never used as features
var DefaultDropColumns = []string{"hospital_overall_rating"}

// ModelInput is a feature matrix with the target and id of every row
type ModelInput struct {
	X          *table.Table
	Target     []table.Cell
	IDs        []table.Cell
	TargetName string
	IDName     string
}

// Len returns the number of rows
func (m *ModelInput) Len() int {
	return m.X.Len()
}

// FormatInput drops the columns in drop (DefaultDropColumns when nil) and
// every row whose target is missing, then moves the target and id columns
// out of the feature matrix. Drop columns absent from t are ignored.
func FormatInput(t *table.Table, target, idColumn string, drop []string) (*ModelInput, error) {
	if drop == nil {
		drop = DefaultDropColumns
	}

	x := t.Clone()
	x.DropColumns(drop...)
	for _, col := range []string{target, idColumn} {
		if !x.HasColumn(col) {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("column %q not found", col)).
				WithContext("table", t.Name)
		}
	}

	ti := x.ColumnIndex(target)
	x = x.Filter(func(row []table.Cell) bool { return row[ti].Valid })

	in := &ModelInput{TargetName: target, IDName: idColumn}
	in.Target, _ = x.Column(target)
	in.IDs, _ = x.Column(idColumn)
	x.DropColumns(target, idColumn)
	x.Name = "features"
	in.X = x
	return in, nil
}

// Prepare formats t, one-hot encodes the features and splits the rows
// according to cfg
func Prepare(t *table.Table, cfg config.FeaturesConfig) (train, test *ModelInput, err error) {
	in, err := FormatInput(t, cfg.Target, cfg.IDColumn, cfg.DropColumns)
	if err != nil {
		return nil, nil, err
	}
	if in.X, err = OneHot(in.X); err != nil {
		return nil, nil, err
	}

	split, err := TrainTestSplit(in.Len(), cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}
	train, test = in.Split(split)
	return train, test, nil
}
