package features

import (
	"path/filepath"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// Files written by WriteSplit
const (
	XTrainFile = "X_train.csv"
	XTestFile  = "X_test.csv"
	YTrainFile = "y_train.csv"
	YTestFile  = "y_test.csv"
)

// Labels returns the id and target columns as a table
func (m *ModelInput) Labels() *table.Table {
	out := table.New("labels", m.IDName, m.TargetName)
	out.Rows = make([][]table.Cell, len(m.Target))
	for i := range m.Target {
		out.Rows[i] = []table.Cell{m.IDs[i], m.Target[i]}
	}
	return out
}

// WriteSplit writes the feature and label tables of both sets into dir and
// returns the written paths keyed by file name
func WriteSplit(dir string, train, test *ModelInput, opts table.WriteOptions) (map[string]string, error) {
	files := []struct {
		name string
		t    *table.Table
	}{
		{XTrainFile, train.X},
		{XTestFile, test.X},
		{YTrainFile, train.Labels()},
		{YTestFile, test.Labels()},
	}

	out := make(map[string]string, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := table.WriteCSVFile(path, f.t, opts); err != nil {
			return out, apperrors.NewStorageError("failed to write model input", err).WithContext("path", path)
		}
		out[f.name] = path
	}
	return out, nil
}
