package validation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
)

// FileValidator checks pipeline inputs and output locations before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// DatasetReport is the preflight result for one configured dataset
type DatasetReport struct {
	Name    string
	Path    string
	Columns int
	Err     error
}

// OK reports whether the dataset passed every check
func (r DatasetReport) OK() bool {
	return r.Err == nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path exists, is a regular file and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Warn("File does not exist", slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile checks the extension and header row of a CSV file and
// returns the number of header columns
func (v *FileValidator) ValidateCSVFile(path string) (int, error) {
	if err := v.ValidateFile(path); err != nil {
		return 0, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return 0, fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("file %s has no header row", path)
	}
	if err != nil {
		return 0, fmt.Errorf("file %s has an unreadable header: %w", path, err)
	}

	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			return 0, fmt.Errorf("file %s: column %d has no name", path, i+1)
		}
		if seen[name] {
			return 0, fmt.Errorf("file %s: duplicate column %q", path, name)
		}
		seen[name] = true
	}
	return len(header), nil
}

// ValidateExcelFile checks that path is a readable workbook
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
		return fmt.Errorf("file %s is not an Excel file (extension: %s)", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}
	return nil
}

// ValidateDatasets checks the raw file of every spec. The returned error
// joins every failure; the reports list each dataset in configured order.
func (v *FileValidator) ValidateDatasets(paths *config.Paths, specs []config.DatasetSpec) ([]DatasetReport, error) {
	reports := make([]DatasetReport, 0, len(specs))
	var errs []error

	for _, spec := range specs {
		report := DatasetReport{Name: spec.Name, Path: paths.GetRawPath(spec.File)}
		if strings.EqualFold(filepath.Ext(report.Path), ".xlsx") {
			report.Err = v.ValidateExcelFile(report.Path)
		} else {
			report.Columns, report.Err = v.ValidateCSVFile(report.Path)
		}
		if report.Err != nil {
			errs = append(errs, fmt.Errorf("dataset %s: %w", spec.Name, report.Err))
		}
		reports = append(reports, report)
	}

	v.logger.Info("Raw datasets validated",
		slog.Int("datasets", len(specs)),
		slog.Int("failed", len(errs)))
	return reports, errors.Join(errs...)
}
