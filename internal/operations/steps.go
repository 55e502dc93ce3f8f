package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	"github.com/patrickmlong/Data-Intensive-PML/internal/dataprocessing"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/merge"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

func reportTable(state *OperationState, stepID string, t *table.Table, output string) {
	if s := state.GetStep(stepID); s != nil {
		s.SetMetadata(MetadataRows, t.Len())
		s.SetMetadata(MetadataColumns, t.Width())
		if output != "" {
			s.SetMetadata(MetadataOutput, output)
		}
	}
}

// PrepareStep creates the data directories and removes cleaned files left by
// an earlier run
type PrepareStep struct {
	BaseStep
	paths     *config.Paths
	keepStale bool
	logger    *slog.Logger
}

// NewPrepareStep creates the workspace preparation step
func NewPrepareStep(paths *config.Paths, keepStale bool, logger *slog.Logger) *PrepareStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrepareStep{
		BaseStep:  NewBaseStep(StepIDPrepare, StepNamePrepare, nil),
		paths:     paths,
		keepStale: keepStale,
		logger:    logger,
	}
}

// Execute implements Step
func (s *PrepareStep) Execute(ctx context.Context, state *OperationState) error {
	if err := s.paths.EnsureDirectories(); err != nil {
		return apperrors.NewStorageError("failed to create data directories", err)
	}
	if s.keepStale {
		return nil
	}

	removed, err := dataprocessing.RemoveCleanedFiles(s.paths.CleanedDir)
	if err != nil {
		return err
	}
	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("removed_files", len(removed))
	}
	s.logger.InfoContext(ctx, "Removed stale cleaned files",
		slog.Int("count", len(removed)),
		slog.String("directory", s.paths.CleanedDir))
	return nil
}

// CleanStep cleans one dataset and publishes the cleaned table under the
// dataset name
type CleanStep struct {
	BaseStep
	spec    config.DatasetSpec
	cleaner *dataprocessing.Cleaner
}

// NewCleanStep creates the cleaning step for a dataset
func NewCleanStep(spec config.DatasetSpec, cleaner *dataprocessing.Cleaner, dependencies []string) *CleanStep {
	return &CleanStep{
		BaseStep: NewBaseStep(CleanStepID(spec.Name), fmt.Sprintf("Clean %s", spec.Name), dependencies),
		spec:     spec,
		cleaner:  cleaner,
	}
}

// Execute implements Step
func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	result, err := s.cleaner.CleanDataset(ctx, s.spec)
	if err != nil {
		return err
	}
	state.SetTable(s.spec.Name, result.Table)
	state.SetOutput(CleanStepID(s.spec.Name), result.OutputPath)
	reportTable(state, s.ID(), result.Table, result.OutputPath)
	return nil
}

// MergeStep outer-joins the cleaned tables in dataset order and writes the
// merged CSV. Tables missing from the state are read from their cleaned files.
type MergeStep struct {
	BaseStep
	datasets []config.DatasetSpec
	key      string
	paths    *config.Paths
	write    table.WriteOptions
}

// NewMergeStep creates the merge step
func NewMergeStep(datasets []config.DatasetSpec, key string, paths *config.Paths, write table.WriteOptions) *MergeStep {
	deps := make([]string, len(datasets))
	for i, ds := range datasets {
		deps[i] = CleanStepID(ds.Name)
	}
	return &MergeStep{
		BaseStep: NewBaseStep(StepIDMerge, StepNameMerge, deps),
		datasets: datasets,
		key:      key,
		paths:    paths,
		write:    write,
	}
}

// Validate implements Step
func (s *MergeStep) Validate(state *OperationState) error {
	if len(s.datasets) == 0 {
		return fmt.Errorf("no datasets to merge")
	}
	return nil
}

// Execute implements Step
func (s *MergeStep) Execute(ctx context.Context, state *OperationState) error {
	tables := make([]*table.Table, 0, len(s.datasets))
	for _, ds := range s.datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := state.GetTable(ds.Name)
		if !ok {
			loaded, err := dataprocessing.LoadCleaned(s.paths.GetCleanedPath(ds.File))
			if err != nil {
				return err
			}
			t = loaded
		}
		tables = append(tables, t)
	}

	merged, err := merge.MergeTables(tables, s.key)
	if err != nil {
		return err
	}

	path := s.paths.MergedCSV()
	if err := table.WriteCSVFile(path, merged, s.write); err != nil {
		return apperrors.NewStorageError("failed to write merged table", err).WithContext("path", path)
	}
	state.SetTable(TableMerged, merged)
	state.SetOutput(OutputMergedCSV, path)
	reportTable(state, s.ID(), merged, path)
	return nil
}

// RegionStep appends the timezone region to the merged table and writes the
// geo CSV, plus a workbook when enabled
type RegionStep struct {
	BaseStep
	lookup     map[string]string
	paths      *config.Paths
	write      table.WriteOptions
	exportXLSX bool
}

// NewRegionStep creates the region binning step
func NewRegionStep(lookup map[string]string, paths *config.Paths, write table.WriteOptions, exportXLSX bool) *RegionStep {
	return &RegionStep{
		BaseStep:   NewBaseStep(StepIDRegion, StepNameRegion, []string{StepIDMerge}),
		lookup:     lookup,
		paths:      paths,
		write:      write,
		exportXLSX: exportXLSX,
	}
}

// Execute implements Step
func (s *RegionStep) Execute(ctx context.Context, state *OperationState) error {
	merged, ok := state.GetTable(TableMerged)
	if !ok {
		loaded, err := dataprocessing.LoadCleaned(s.paths.MergedCSV())
		if err != nil {
			return err
		}
		merged = loaded
	}

	geo := merged.Clone()
	geo.Name = TableGeo
	if err := merge.BinStatesToRegion(geo, s.lookup); err != nil {
		return err
	}

	path := s.paths.GeoCSV()
	if err := table.WriteCSVFile(path, geo, s.write); err != nil {
		return apperrors.NewStorageError("failed to write geo table", err).WithContext("path", path)
	}
	state.SetOutput(OutputGeoCSV, path)

	if s.exportXLSX {
		if err := ctx.Err(); err != nil {
			return err
		}
		xlsx := s.paths.GeoXLSX()
		if err := table.WriteXLSXFile(xlsx, TableGeo, geo); err != nil {
			return apperrors.NewStorageError("failed to write geo workbook", err).WithContext("path", xlsx)
		}
		state.SetOutput(OutputGeoXLSX, xlsx)
	}

	state.SetTable(TableGeo, geo)
	reportTable(state, s.ID(), geo, path)
	return nil
}
