package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Well-known output file names
const (
	MergedCSVName  = "med_data_merged.csv"
	GeoCSVName     = "med_data_merged_geo.csv"
	GeoXLSXName    = "med_data_merged_geo.xlsx"
	CleanedSuffix  = "_cleaned"
	RunsDBFileName = "runs.db"
)

// Paths contains all the application paths.
// Directory structure:
//
//	<base>/
//	  ├── raw/         (downloaded CMS datasets)
//	  ├── cleaned/     (per-dataset *_cleaned.csv)
//	  ├── processed/   (merged tables, model inputs)
//	  ├── results/     (feature importances)
//	  ├── logs/
//	  └── runs.db
type Paths struct {
	BaseDir      string
	RawDir       string
	CleanedDir   string
	ProcessedDir string
	ResultsDir   string
	LogsDir      string
	RunsDB       string
}

// NewPaths lays out the directory tree under base. A relative base is
// resolved against the current working directory.
func NewPaths(base string) (*Paths, error) {
	if base == "" {
		base = "data"
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", base, err)
	}

	return &Paths{
		BaseDir:      abs,
		RawDir:       filepath.Join(abs, "raw"),
		CleanedDir:   filepath.Join(abs, "cleaned"),
		ProcessedDir: filepath.Join(abs, "processed"),
		ResultsDir:   filepath.Join(abs, "results"),
		LogsDir:      filepath.Join(abs, "logs"),
		RunsDB:       filepath.Join(abs, RunsDBFileName),
	}, nil
}

// FromConfig builds paths from the paths section, honoring per-directory overrides
func FromConfig(cfg PathsConfig) (*Paths, error) {
	p, err := NewPaths(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if cfg.RawDir != "" {
		p.RawDir = cfg.RawDir
	}
	if cfg.CleanedDir != "" {
		p.CleanedDir = cfg.CleanedDir
	}
	if cfg.ProcessedDir != "" {
		p.ProcessedDir = cfg.ProcessedDir
	}
	return p, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.BaseDir,
		p.RawDir,
		p.CleanedDir,
		p.ProcessedDir,
		p.ResultsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetRawPath returns the path of an input dataset. Absolute names are kept.
func (p *Paths) GetRawPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(p.RawDir, filename)
}

// GetCleanedPath returns the path of the cleaned file derived from an input file
func (p *Paths) GetCleanedPath(inputFile string) string {
	base := filepath.Base(inputFile)
	stem := base
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			stem = base[:i]
			break
		}
	}
	return filepath.Join(p.CleanedDir, stem+CleanedSuffix+".csv")
}

// GetProcessedPath returns a path inside the processed directory
func (p *Paths) GetProcessedPath(filename string) string {
	return filepath.Join(p.ProcessedDir, filename)
}

// GetResultsPath returns a path inside the results directory
func (p *Paths) GetResultsPath(filename string) string {
	return filepath.Join(p.ResultsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// MergedCSV is the outer-joined table of all cleaned datasets
func (p *Paths) MergedCSV() string {
	return p.GetProcessedPath(MergedCSVName)
}

// GeoCSV is the merged table enriched with regions
func (p *Paths) GeoCSV() string {
	return p.GetProcessedPath(GeoCSVName)
}

// GeoXLSX is the workbook export of the geo table
func (p *Paths) GeoXLSX() string {
	return p.GetProcessedPath(GeoXLSXName)
}

// LogPathResolution logs the resolved directory tree
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("raw", p.RawDir),
			slog.String("cleaned", p.CleanedDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("results", p.ResultsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("output_files",
			slog.String("merged_csv", p.MergedCSV()),
			slog.String("geo_csv", p.GeoCSV()),
			slog.String("geo_xlsx", p.GeoXLSX()),
			slog.String("runs_db", p.RunsDB),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
