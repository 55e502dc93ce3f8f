package operations

import (
	"fmt"
	"log/slog"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	"github.com/patrickmlong/Data-Intensive-PML/internal/dataprocessing"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// BuildRegistry registers the pipeline steps for the configured datasets.
// When datasets is non-empty only those datasets are cleaned and merged, in
// configuration order.
func BuildRegistry(cfg *config.Config, paths *config.Paths, datasets []string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	selected, err := selectDatasets(cfg.Pipeline.Datasets, datasets)
	if err != nil {
		return nil, err
	}

	write := table.WriteOptions{BOMPrefix: cfg.Pipeline.BOMPrefix}
	cleaner := dataprocessing.NewCleaner(paths, write, logger)

	registry := NewRegistry()
	steps := []Step{NewPrepareStep(paths, cfg.Pipeline.KeepStaleFiles, logger)}
	for _, ds := range selected {
		steps = append(steps, NewCleanStep(ds, cleaner, []string{StepIDPrepare}))
	}
	steps = append(steps,
		NewMergeStep(selected, cfg.Pipeline.JoinKey, paths, write),
		NewRegionStep(cfg.Pipeline.StateRegions, paths, write, cfg.Pipeline.ExportXLSX),
	)

	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	if err := registry.ValidateDependencies(); err != nil {
		return nil, err
	}
	return registry, nil
}

// ConfigFromPipeline maps the pipeline section onto execution settings
func ConfigFromPipeline(cfg config.PipelineConfig) *Config {
	c := NewConfig()
	if cfg.Sequential {
		c.ExecutionMode = ExecutionModeSequential
	}
	return c
}

func selectDatasets(all []config.DatasetSpec, names []string) ([]config.DatasetSpec, error) {
	if len(names) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []config.DatasetSpec
	for _, ds := range all {
		if want[ds.Name] {
			out = append(out, ds)
			delete(want, ds.Name)
		}
	}
	for n := range want {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown dataset %q", n)).
			WithContext("dataset", n)
	}
	return out, nil
}
