package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// DatasetFile reports where a configured dataset lives and whether its raw
// and cleaned files are present
type DatasetFile struct {
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	RawPath     string    `json:"raw_path"`
	Present     bool      `json:"present"`
	Size        int64     `json:"size,omitempty"`
	Modified    time.Time `json:"modified,omitempty"`
	CleanedPath string    `json:"cleaned_path"`
	Cleaned     bool      `json:"cleaned"`
}

// Discovery provides file discovery operations
type Discovery struct {
	paths *config.Paths
}

// NewDiscovery creates a discovery rooted at paths
func NewDiscovery(paths *config.Paths) *Discovery {
	return &Discovery{paths: paths}
}

// FindDataFiles lists the CSV and Excel files in dir, oldest first. A
// relative dir is resolved against the raw directory.
func (d *Discovery) FindDataFiles(dir string) ([]FileInfo, error) {
	return d.find(dir, func(name string) bool {
		ext := strings.ToLower(filepath.Ext(name))
		return ext == ".csv" || ext == ".xlsx"
	})
}

// FindFilesByPattern finds files in dir matching a glob pattern
func (d *Discovery) FindFilesByPattern(dir, pattern string) ([]FileInfo, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return d.find(dir, func(name string) bool {
		ok, _ := filepath.Match(pattern, name)
		return ok
	})
}

func (d *Discovery) find(dir string, match func(string) bool) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.paths.RawDir, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// Inventory checks every dataset in specs against the raw and cleaned
// directories, in configured order
func (d *Discovery) Inventory(specs []config.DatasetSpec) []DatasetFile {
	out := make([]DatasetFile, 0, len(specs))
	for _, spec := range specs {
		raw := d.paths.GetRawPath(spec.File)
		df := DatasetFile{
			Name:        spec.Name,
			Kind:        spec.Kind,
			RawPath:     raw,
			CleanedPath: d.paths.GetCleanedPath(raw),
		}
		if info, err := os.Stat(raw); err == nil && !info.IsDir() {
			df.Present = true
			df.Size = info.Size()
			df.Modified = info.ModTime()
		}
		df.Cleaned = config.FileExists(df.CleanedPath)
		out = append(out, df)
	}
	return out
}

// Missing returns the names of datasets whose raw file is absent
func Missing(inventory []DatasetFile) []string {
	var names []string
	for _, df := range inventory {
		if !df.Present {
			names = append(names, df.Name)
		}
	}
	return names
}
