package operations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	"github.com/patrickmlong/Data-Intensive-PML/internal/dataprocessing"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

var fixtures = map[string]string{
	config.KindGeneralInfo: "Provider ID,Hospital Name,State,Emergency Services,Meets criteria for meaningful use of EHRs,Mortality national comparison\n" +
		"010001,SOUTHEAST ALABAMA MEDICAL CENTER,AL,True,Y,Same as the National average\n" +
		"010005,MARSHALL MEDICAL CENTER SOUTH,AK,False,,Not Available\n",
	config.KindSpending: "Hospital Name,Provider ID,State,Measure Name,Measure ID,Score,Footnote,Start Date,End Date,Location\n" +
		"SOUTHEAST ALABAMA MEDICAL CENTER,010001,AL,Medicare hospital spending per patient (Medicare Spending per Beneficiary),MSPB_1,0.987,,01/01/2015,12/31/2015,\"1108 ROSS CLARK CIRCLE DOTHAN, AL\"\n" +
		"NEW HOSPITAL,020001,AK,Medicare hospital spending per patient (Medicare Spending per Beneficiary),MSPB_1,Not Available,5,01/01/2015,12/31/2015,\n",
	config.KindReadmissions: "Hospital Name,Provider Number,State,Measure Name,Number of Discharges,Excess Readmission Ratio,Predicted Readmission Rate,Expected Readmission Rate,Number of Readmissions\n" +
		"SOUTHEAST ALABAMA MEDICAL CENTER,010001,AL,READM-30-HF-HRRP,651,1.0107,21.2,21.0,139\n" +
		"MARSHALL MEDICAL CENTER SOUTH,010005,AL,READM-30-HF-HRRP,Not Available,Not Available,Not Available,Not Available,Too Few to Report\n",
}

func setupWorkspace(t *testing.T) (*config.Config, *config.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.ExportXLSX = true

	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	for _, ds := range cfg.Pipeline.Datasets {
		require.NoError(t, os.WriteFile(paths.GetRawPath(ds.File), []byte(fixtures[ds.Kind]), 0644))
	}
	return cfg, paths
}

func TestPipeline_EndToEnd(t *testing.T) {
	cfg, paths := setupWorkspace(t)

	stale := filepath.Join(paths.CleanedDir, "old_cleaned.csv")
	require.NoError(t, os.WriteFile(stale, []byte("x\n1\n"), 0644))

	registry, err := BuildRegistry(cfg, paths, nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		StepIDPrepare, "clean_general_info", "clean_spending", "clean_readmissions", StepIDMerge, StepIDRegion,
	}, registry.ListIDs())

	m := NewManager(registry, ConfigFromPipeline(cfg.Pipeline), nil, quietLogger())
	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	require.Equal(t, OperationStatusCompleted, resp.Status)

	assert.NoFileExists(t, stale)
	for _, ds := range cfg.Pipeline.Datasets {
		assert.FileExists(t, paths.GetCleanedPath(ds.File))
	}
	assert.FileExists(t, paths.MergedCSV())
	assert.FileExists(t, paths.GeoCSV())
	assert.FileExists(t, paths.GeoXLSX())
	assert.Equal(t, paths.GeoCSV(), resp.Outputs[OutputGeoCSV])

	geo, err := dataprocessing.LoadCleaned(paths.GeoCSV())
	require.NoError(t, err)
	assert.Equal(t, 3, geo.Len())
	assert.Equal(t, 3, resp.Rows)
	assert.Equal(t, "provider_id", geo.Columns[0])
	assert.Equal(t, "region", geo.Columns[len(geo.Columns)-1])
	assert.Contains(t, geo.Columns, "hospital_name")
	assert.Contains(t, geo.Columns, "readm_30_hf_hrrp_number_of_readmissions")
	assert.Contains(t, geo.Columns, "state")
	assert.NotContains(t, geo.Columns, "state_x")
	assert.NotContains(t, geo.Columns, "location")

	byID := map[string][]table.Cell{}
	idIdx := geo.ColumnIndex("provider_id")
	for _, row := range geo.Rows {
		byID[row[idIdx].Value] = row
	}
	require.Contains(t, byID, "10001")
	require.Contains(t, byID, "10005")
	require.Contains(t, byID, "20001")

	get := func(id, col string) table.Cell {
		return byID[id][geo.ColumnIndex(col)]
	}
	assert.Equal(t, table.String("2"), get("10001", "mortality_national_comparison"))
	assert.Equal(t, table.String("3"), get("10005", "meets_criteria_for_meaningful_use_of_ehrs"))
	assert.Equal(t, table.String("0"), get("10005", "readm_30_hf_hrrp_number_of_readmissions"))
	assert.True(t, get("20001", "score").IsMissing())
	assert.Equal(t, table.String("US/Central"), get("10001", "region"))
	assert.Equal(t, table.String("US/Alaska"), get("10005", "region"))
	// Only general info carries a state; a provider missing from it gets the blank-state region
	assert.True(t, get("20001", "state").IsMissing())
	assert.Equal(t, table.String("US/Pacific"), get("20001", "region"))
}

func TestPipeline_MergeFromCleanedFiles(t *testing.T) {
	cfg, paths := setupWorkspace(t)

	registry, err := BuildRegistry(cfg, paths, nil, quietLogger())
	require.NoError(t, err)
	m := NewManager(registry, NewConfig(), nil, quietLogger())

	_, err = m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(paths.MergedCSV()))

	resp, err := m.Execute(context.Background(), OperationRequest{Steps: []string{StepIDMerge, StepIDRegion}})
	require.NoError(t, err)
	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.FileExists(t, paths.MergedCSV())
	assert.Equal(t, 3, resp.Rows)
}

func TestPipeline_MissingInputFails(t *testing.T) {
	cfg, paths := setupWorkspace(t)
	require.NoError(t, os.Remove(paths.GetRawPath(cfg.Pipeline.Datasets[1].File)))

	registry, err := BuildRegistry(cfg, paths, nil, quietLogger())
	require.NoError(t, err)

	resp, err := NewManager(registry, NewConfig(), nil, quietLogger()).
		Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.Equal(t, OperationStatusFailed, resp.Status)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDMerge].Status)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDRegion].Status)
}

func TestBuildRegistry_DatasetSubset(t *testing.T) {
	cfg, paths := setupWorkspace(t)

	registry, err := BuildRegistry(cfg, paths, []string{"readmissions", "general_info"}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		StepIDPrepare, "clean_general_info", "clean_readmissions", StepIDMerge, StepIDRegion,
	}, registry.ListIDs())

	_, err = BuildRegistry(cfg, paths, []string{"unknown"}, quietLogger())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
