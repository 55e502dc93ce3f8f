package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
)

var rawFixtures = map[string]string{
	config.KindGeneralInfo: "Provider ID,Hospital Name,State,Emergency Services,Meets criteria for meaningful use of EHRs,Mortality national comparison\n" +
		"010001,SOUTHEAST ALABAMA MEDICAL CENTER,AL,True,Y,Same as the National average\n" +
		"010005,MARSHALL MEDICAL CENTER SOUTH,AL,False,,Below the National average\n",
	config.KindSpending: "Hospital Name,Provider ID,State,Measure Name,Measure ID,Score,Footnote,Start Date,End Date,Location\n" +
		"SOUTHEAST ALABAMA MEDICAL CENTER,010001,AL,Medicare hospital spending per patient,MSPB_1,0.987,,01/01/2015,12/31/2015,\n",
	config.KindReadmissions: "Hospital Name,Provider Number,State,Measure Name,Number of Discharges,Excess Readmission Ratio,Predicted Readmission Rate,Expected Readmission Rate,Number of Readmissions\n" +
		"SOUTHEAST ALABAMA MEDICAL CENTER,010001,AL,READM-30-HF-HRRP,651,1.0107,21.2,21.0,139\n",
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fixture struct {
	cfg   *config.Config
	paths *config.Paths
	runs  store.RunStore
	svc   *PipelineService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	for _, ds := range cfg.Pipeline.Datasets {
		require.NoError(t, os.WriteFile(paths.GetRawPath(ds.File), []byte(rawFixtures[ds.Kind]), 0644))
	}

	runs := store.NewMemoryRunStore()
	return &fixture{
		cfg:   cfg,
		paths: paths,
		runs:  runs,
		svc:   NewPipelineService(cfg, paths, runs, nil, quietLogger()),
	}
}

func (f *fixture) waitFinished(t *testing.T, id string) *store.RunRecord {
	t.Helper()
	var rec *store.RunRecord
	require.Eventually(t, func() bool {
		got, err := f.svc.GetRun(context.Background(), id)
		if err != nil {
			return false
		}
		rec = got
		return got.Finished() && f.svc.ActiveRun() == ""
	}, 10*time.Second, 10*time.Millisecond)
	return rec
}

func TestPipelineService_StartRun(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, store.StatusRunning, rec.Status)
	assert.Equal(t, []string{"general_info", "spending", "readmissions"}, rec.Datasets)

	done := f.waitFinished(t, rec.ID)
	assert.Equal(t, store.StatusCompleted, done.Status)
	assert.Empty(t, done.Error)
	assert.Equal(t, 2, done.Rows)
	assert.Equal(t, f.paths.GeoCSV(), done.OutputPath)
	require.NotNil(t, done.FinishedAt)
	assert.FileExists(t, f.paths.GeoCSV())
	assert.NoFileExists(t, f.paths.GeoXLSX())
}

func TestPipelineService_StartRunOverrides(t *testing.T) {
	f := newFixture(t)
	export := true

	rec, err := f.svc.StartRun(context.Background(), RunRequest{
		Datasets:   []string{"spending", "general_info"},
		ExportXLSX: &export,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"spending", "general_info"}, rec.Datasets)

	done := f.waitFinished(t, rec.ID)
	assert.Equal(t, store.StatusCompleted, done.Status)
	assert.FileExists(t, f.paths.GeoXLSX())
	assert.False(t, f.cfg.Pipeline.ExportXLSX, "request overrides do not leak into the config")
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []string
}

func (n *recordingNotifier) PublishRun(_ context.Context, rec *store.RunRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, rec.Status)
}

func (n *recordingNotifier) statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.seen...)
}

func TestPipelineService_Notifier(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{}
	f.svc.SetNotifier(notifier)

	rec, err := f.svc.Run(context.Background(), RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, rec.Status)
	assert.Equal(t, []string{store.StatusRunning, store.StatusCompleted}, notifier.statuses())

	started, err := f.svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	f.waitFinished(t, started.ID)
	assert.Eventually(t, func() bool { return len(notifier.statuses()) == 4 }, 5*time.Second, 10*time.Millisecond)
}

func TestPipelineService_StartRunConflict(t *testing.T) {
	f := newFixture(t)
	f.svc.active = "busy"

	_, err := f.svc.StartRun(context.Background(), RunRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	_, err = f.svc.Run(context.Background(), RunRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	runs, err := f.svc.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPipelineService_UnknownDataset(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartRun(context.Background(), RunRequest{Datasets: []string{"nope"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Empty(t, f.svc.ActiveRun())
}

func TestPipelineService_RunRecordsFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.paths.GetRawPath(f.cfg.Pipeline.Datasets[0].File)))

	rec, err := f.svc.Run(context.Background(), RunRequest{})
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, store.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)
	assert.Empty(t, f.svc.ActiveRun())

	stored, err := f.svc.GetRun(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, stored.Status)
}

func TestPipelineService_CancelRun(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.Run(context.Background(), RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, rec.Status)

	err = f.svc.CancelRun(context.Background(), rec.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	err = f.svc.CancelRun(context.Background(), "unknown")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	// An active run's cancel func is invoked
	cancelled := false
	f.svc.active = "running"
	f.svc.cancel = func() { cancelled = true }
	require.NoError(t, f.svc.CancelRun(context.Background(), "running"))
	assert.True(t, cancelled)
}

func TestPipelineService_Shutdown(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	stored, err := f.svc.GetRun(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.Finished())
}

func TestDataService(t *testing.T) {
	f := newFixture(t)
	ds := NewDataService(f.paths, f.cfg.Pipeline.Datasets, quietLogger())
	ctx := context.Background()

	datasets, err := ds.GetDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 3)
	for _, d := range datasets {
		assert.True(t, d.Present, d.Name)
		assert.False(t, d.Cleaned, d.Name)
	}

	tables, err := ds.GetTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	_, err = ds.TablePath(ctx, "geo")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	_, err = ds.TablePath(ctx, "raw")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = f.svc.Run(ctx, RunRequest{})
	require.NoError(t, err)

	datasets, err = ds.GetDatasets(ctx)
	require.NoError(t, err)
	assert.True(t, datasets[0].Cleaned)

	tables, err = ds.GetTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "geo", tables[0].Name)
	assert.Equal(t, "merged", tables[1].Name)
	assert.Positive(t, tables[0].Size)

	preview, err := ds.PreviewTable(ctx, "geo", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.TotalRows)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "10001", preview.Rows[0]["provider_id"])
	assert.Equal(t, "US/Central", preview.Rows[0]["region"])
	assert.Equal(t, "region", preview.Columns[len(preview.Columns)-1])

	full, err := ds.PreviewTable(ctx, "merged", 0)
	require.NoError(t, err)
	require.Len(t, full.Rows, 2)
	// Provider 10005 has no spending row
	assert.Nil(t, full.Rows[1]["score"])
}

func TestHealthService(t *testing.T) {
	f := newFixture(t)
	hs := NewHealthService(config.AppVersion, f.paths, f.runs, f.svc, quietLogger())
	ctx := context.Background()

	assert.Equal(t, StatusOK, hs.HealthCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, StatusReady, ready.Status)
	assert.Equal(t, StatusReady, ready.Services["store"].Status)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, StatusAlive, live.Status)
	assert.Equal(t, "", live.Runtime["active_run"])
	assert.Equal(t, config.AppVersion, hs.Version()["version"])

	missing, err := config.NewPaths(f.paths.BaseDir + "/absent")
	require.NoError(t, err)
	notReady := NewHealthService(config.AppVersion, missing, nil, nil, quietLogger()).ReadinessCheck(ctx)
	assert.Equal(t, StatusNotReady, notReady.Status)
	assert.Equal(t, StatusNotReady, notReady.Services["data"].Status)
	assert.Equal(t, StatusNotReady, notReady.Services["store"].Status)
}
