package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Minute, cfg.Server.RunTimeout)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "provider_id", cfg.Pipeline.JoinKey)
				assert.Len(t, cfg.Pipeline.Datasets, 3)
				assert.Equal(t, "US/Pacific", cfg.Pipeline.StateRegions["--"])
				assert.Equal(t, int64(42), cfg.Features.Seed)
				assert.Equal(t, 0.2, cfg.Features.TestFraction)
				assert.Equal(t, "memory", cfg.Store.Driver)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"MEDCLEAN_SERVER_PORT":           "9090",
				"MEDCLEAN_SERVER_READ_TIMEOUT":   "30s",
				"MEDCLEAN_LOGGING_LEVEL":         "debug",
				"MEDCLEAN_LOGGING_FORMAT":        "text",
				"MEDCLEAN_PIPELINE_EXPORT_XLSX":  "true",
				"MEDCLEAN_FEATURES_DROP_COLUMNS": "a,b",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format, "format is always forced to json")
				assert.True(t, cfg.Pipeline.ExportXLSX)
				assert.Equal(t, []string{"a", "b"}, cfg.Features.DropColumns)
			},
		},
		{
			name: "yaml file overrides datasets",
			file: `
paths:
  data_dir: /srv/cms
pipeline:
  datasets:
    - name: spending
      kind: spending
      file: mspb.csv
      exclude_columns: [footnote]
      na_values: ["Not Available"]
  state_regions:
    ZZ: Test/Zone
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/cms", cfg.Paths.DataDir)
				require.Len(t, cfg.Pipeline.Datasets, 1)
				assert.Equal(t, "mspb.csv", cfg.Pipeline.Datasets[0].File)
				assert.Equal(t, "Test/Zone", cfg.Pipeline.StateRegions["ZZ"])
				assert.Equal(t, "US/Alaska", cfg.Pipeline.StateRegions["AK"], "file entries merge into defaults")
			},
		},
		{
			name: "environment wins over file",
			env:  map[string]string{"MEDCLEAN_SERVER_PORT": "7000"},
			file: "server:\n  port: 6000\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"MEDCLEAN_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"MEDCLEAN_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "invalid test fraction",
			env:     map[string]string{"MEDCLEAN_FEATURES_TEST_FRACTION": "1.5"},
			wantErr: true,
		},
		{
			name:    "unknown dataset kind",
			file:    "pipeline:\n  datasets:\n    - {name: x, kind: weird, file: x.csv}\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestValidate_DuplicateDatasetNames(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Datasets = append(cfg.Pipeline.Datasets, cfg.Pipeline.Datasets[0])

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate dataset name")
}

func TestValidate_NoDatasets(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Datasets = nil

	assert.Error(t, cfg.Validate())
}

func TestConfig_Dataset(t *testing.T) {
	cfg := Default()

	ds, ok := cfg.Dataset("readmissions")
	require.True(t, ok)
	assert.Equal(t, KindReadmissions, ds.Kind)
	assert.Contains(t, ds.NAValues, SuppressedCount)

	_, ok = cfg.Dataset("unknown")
	assert.False(t, ok)
}

func TestDefaultStateRegions(t *testing.T) {
	regions := DefaultStateRegions()

	assert.Len(t, regions, 58)
	assert.Equal(t, "America/Puerto_Rico", regions["PR"])
	assert.Equal(t, "US/Pacific", regions[""])
}
