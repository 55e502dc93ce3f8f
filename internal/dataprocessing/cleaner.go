package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickmlong/Data-Intensive-PML/internal/cleaning"
	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/readmission"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// CleanResult describes one cleaned dataset
type CleanResult struct {
	Dataset    string
	InputPath  string
	OutputPath string
	Table      *table.Table
	Coerced    []string
	Nulled     int
	Encoded    int
}

// Cleaner reads raw datasets, applies the steps for their kind and writes
// the cleaned CSV next to the other cleaned files
type Cleaner struct {
	paths  *config.Paths
	write  table.WriteOptions
	logger *slog.Logger
}

// NewCleaner creates a cleaner writing under paths.CleanedDir
func NewCleaner(paths *config.Paths, write table.WriteOptions, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		paths:  paths,
		write:  write,
		logger: logger.With(slog.String("component", "cleaner")),
	}
}

// CleanDataset loads, cleans and saves one dataset
func (c *Cleaner) CleanDataset(ctx context.Context, spec config.DatasetSpec) (*CleanResult, error) {
	input := c.paths.GetRawPath(spec.File)
	log := c.logger.With(slog.String("dataset", spec.Name), slog.String("kind", spec.Kind))
	log.InfoContext(ctx, "Cleaning dataset", slog.String("input", input))

	raw, err := LoadDataset(input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := Clean(raw, spec)
	if err != nil {
		return nil, err
	}
	result.InputPath = input
	result.OutputPath = c.paths.GetCleanedPath(spec.File)

	if err := table.WriteCSVFile(result.OutputPath, result.Table, c.write); err != nil {
		return nil, apperrors.NewStorageError("failed to write cleaned file", err).
			WithContext("path", result.OutputPath)
	}

	log.InfoContext(ctx, "Dataset cleaned",
		slog.String("output", result.OutputPath),
		slog.Int("rows", result.Table.Len()),
		slog.Int("columns", result.Table.Width()),
		slog.Int("nulled_cells", result.Nulled),
		slog.Any("coerced_columns", result.Coerced))
	return result, nil
}

// LoadDataset reads a raw CSV or XLSX dataset with the default NA tokens
func LoadDataset(path string) (*table.Table, error) {
	if !config.FileExists(path) {
		return nil, apperrors.NewNotFoundError("dataset file").WithContext("path", path)
	}
	t, err := table.ReadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read dataset", err).WithContext("path", path)
	}
	return t, nil
}

// Clean applies the steps for spec.Kind to a copy of t:
//
//	general_info:  tidy, drop, missing, coerce, ordinal
//	spending:      tidy, drop, missing
//	readmissions:  tidy, drop, pivot, missing
func Clean(t *table.Table, spec config.DatasetSpec) (*CleanResult, error) {
	out := t.Clone()
	out.Name = spec.Name
	result := &CleanResult{Dataset: spec.Name}

	cleaning.TidyColumnNames(out)
	if err := cleaning.DropExcludedColumns(out, spec.ExcludeColumns); err != nil {
		return nil, err
	}

	switch spec.Kind {
	case config.KindGeneralInfo:
		result.Nulled = cleaning.NormalizeMissing(out, spec.NAValues)
		coerced, err := cleaning.CoerceBooleans(out, spec.ConvertColumns)
		if err != nil {
			return nil, err
		}
		result.Coerced = coerced
		result.Encoded = cleaning.EncodeComparisons(out)

	case config.KindSpending:
		result.Nulled = cleaning.NormalizeMissing(out, spec.NAValues)

	case config.KindReadmissions:
		opts := readmission.DefaultPivotOptions()
		opts.SkipTokens = spec.NAValues
		pivoted, err := readmission.Pivot(out, opts)
		if err != nil {
			return nil, err
		}
		out = pivoted
		result.Nulled = cleaning.NormalizeMissing(out, spec.NAValues)

	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown dataset kind %q", spec.Kind)).
			WithContext("dataset", spec.Name)
	}

	result.Table = out
	return result, nil
}

// RemoveCleanedFiles deletes every file in dir whose name contains the
// cleaned suffix and returns the removed paths. A missing dir is not an error.
func RemoveCleanedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list cleaned directory", err).
			WithContext("path", dir)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), config.CleanedSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			return removed, apperrors.NewStorageError("failed to remove cleaned file", err).
				WithContext("path", path)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// LoadCleaned reads a cleaned CSV. Only empty fields are missing, so values
// written by Clean read back unchanged.
func LoadCleaned(path string) (*table.Table, error) {
	t, err := table.ReadCSVFile(path, table.ReadOptions{NAValues: []string{""}})
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read cleaned file", err).WithContext("path", path)
	}
	return t, nil
}
