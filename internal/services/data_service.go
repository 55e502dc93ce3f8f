package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	"github.com/patrickmlong/Data-Intensive-PML/internal/dataprocessing"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/files"
	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
	"github.com/patrickmlong/Data-Intensive-PML/internal/operations"
)

// DefaultPreviewLimit is the number of rows previewed when no limit is given
const DefaultPreviewLimit = 100

// TableInfo describes a pipeline output on disk
type TableInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// TablePreview is the head of an output table. Missing cells are null.
type TablePreview struct {
	Name      string                   `json:"name"`
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	TotalRows int                      `json:"total_rows"`
}

// DataService gives read access to the input datasets and merged outputs
type DataService struct {
	paths     *config.Paths
	datasets  []config.DatasetSpec
	discovery *files.Discovery
	logger    *slog.Logger
}

// NewDataService creates a data service reading under paths
func NewDataService(paths *config.Paths, datasets []config.DatasetSpec, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		paths:     paths,
		datasets:  datasets,
		discovery: files.NewDiscovery(paths),
		logger:    infrastructure.WithComponent(logger, "data_service"),
	}
}

// GetDatasets reports which configured datasets are present in the raw
// directory and which have been cleaned
func (ds *DataService) GetDatasets(ctx context.Context) ([]files.DatasetFile, error) {
	inv := ds.discovery.Inventory(ds.datasets)
	if missing := files.Missing(inv); len(missing) > 0 {
		ds.logger.DebugContext(ctx, "Raw datasets missing", slog.Any("datasets", missing))
	}
	return inv, nil
}

func (ds *DataService) tableFiles() map[string]string {
	return map[string]string{
		operations.TableMerged: ds.paths.MergedCSV(),
		operations.TableGeo:    ds.paths.GeoCSV(),
	}
}

// TablePath returns the CSV file of a named table. Unknown names give a
// VALIDATION error, tables not yet written NOT_FOUND.
func (ds *DataService) TablePath(ctx context.Context, name string) (string, error) {
	path, ok := ds.tableFiles()[name]
	if !ok {
		return "", apperrors.NewAppValidationError(fmt.Sprintf("unknown table %q", name)).
			WithContext("table", name)
	}
	if !config.FileExists(path) {
		return "", apperrors.NewNotFoundError("table").WithContext("table", name)
	}
	return path, nil
}

// GetTables lists the outputs that exist, sorted by name
func (ds *DataService) GetTables(ctx context.Context) ([]TableInfo, error) {
	var tables []TableInfo
	for name, path := range ds.tableFiles() {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, apperrors.NewStorageError("failed to stat table", err).WithContext("path", path)
		}
		tables = append(tables, TableInfo{
			Name:     name,
			Path:     path,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

// PreviewTable returns up to limit rows of a named table
func (ds *DataService) PreviewTable(ctx context.Context, name string, limit int) (*TablePreview, error) {
	path, err := ds.TablePath(ctx, name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	t, err := dataprocessing.LoadCleaned(path)
	if err != nil {
		return nil, err
	}

	n := min(limit, t.Len())
	rows := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		row := make(map[string]interface{}, t.Width())
		for j, col := range t.Columns {
			if c := t.Rows[i][j]; c.Valid {
				row[col] = c.Value
			} else {
				row[col] = nil
			}
		}
		rows[i] = row
	}

	ds.logger.DebugContext(ctx, "Table previewed",
		slog.String("table", name),
		slog.Int("rows", n),
		slog.Int("total_rows", t.Len()))
	return &TablePreview{
		Name:      name,
		Columns:   t.Columns,
		Rows:      rows,
		TotalRows: t.Len(),
	}, nil
}
