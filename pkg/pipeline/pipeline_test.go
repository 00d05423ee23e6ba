package pipeline

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieco-lab/scarifSDM/pkg/data"
	"github.com/ieco-lab/scarifSDM/pkg/risk"
	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, data.Init(dbPath))

	db, err := data.GetDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func seedDataset(t *testing.T, db *sql.DB, dataset string) {
	t.Helper()

	require.NoError(t, data.SaveSamples(db, dataset, []*data.Sample{
		{ID: "p1", X: -75.1, Y: 40.2},
		{ID: "p2", X: -76.9, Y: 39.8},
		{ID: "p3", X: -77.5, Y: 41.1},
	}))

	// coarse threshold 0.3, fine threshold 0.4
	require.NoError(t, data.SaveSuitability(db, dataset, []*data.Suitability{
		{SampleID: "p1", Model: "coarse", Snapshot: "1981-2010", Raw: 0.6},
		{SampleID: "p1", Model: "fine", Snapshot: "1981-2010", Raw: 0.7},
		{SampleID: "p2", Model: "coarse", Snapshot: "1981-2010", Raw: 0.1},
		{SampleID: "p2", Model: "fine", Snapshot: "1981-2010", Raw: 0.6},
		{SampleID: "p3", Model: "coarse", Snapshot: "1981-2010", Raw: 0.1},
		{SampleID: "p3", Model: "fine", Snapshot: "1981-2010", Raw: 0.1},

		{SampleID: "p1", Model: "coarse", Snapshot: "2041-2070", Raw: 0.9},
		{SampleID: "p1", Model: "fine", Snapshot: "2041-2070", Raw: 0.1},
		{SampleID: "p2", Model: "coarse", Snapshot: "2041-2070", Raw: 0.7},
		{SampleID: "p2", Model: "fine", Snapshot: "2041-2070", Raw: 0.9},
		{SampleID: "p3", Model: "coarse", Snapshot: "2041-2070", Raw: 0.05},
		{SampleID: "p3", Model: "fine", Snapshot: "2041-2070", Raw: 0.2},
	}))

	require.NoError(t, data.SaveThresholds(db, []*data.Threshold{
		{Model: "coarse", Name: "mtss", Value: 0.3},
		{Model: "fine", Name: "mtss", Value: 0.4},
	}))
}

func seedCalibration(t *testing.T, db *sql.DB) *scale.Table {
	t.Helper()

	table, err := scale.BuildTable(0.05, 0.95, 0.05, false)
	require.NoError(t, err)
	require.NoError(t, data.SaveCalibration(db, table.Rows()))
	return table
}

func testParams(dataset string) *Params {
	return &Params{
		Dataset:         dataset,
		CoarseModel:     "coarse",
		CoarseThreshold: "mtss",
		FineModel:       "fine",
		FineThreshold:   "mtss",
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, testParams("global").Validate())

	p := testParams("")
	assert.Error(t, p.Validate())

	p = testParams("global")
	p.FineModel = ""
	assert.Error(t, p.Validate())

	p = testParams("global")
	p.CoarseThreshold = ""
	assert.Error(t, p.Validate())
}

func TestRun(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	table := seedCalibration(t, db)

	res, err := Run(context.Background(), db, table, testParams("global"))
	require.NoError(t, err)

	assert.Equal(t, "global", res.Dataset)
	assert.Equal(t, 0.3, res.CoarseThreshold)
	assert.Equal(t, 0.4, res.FineThreshold)
	assert.InDelta(t, 0.5, res.CoarseRef, 1e-9)
	assert.InDelta(t, 0.5, res.FineRef, 1e-9)
	assert.NotEmpty(t, res.Duration)

	// snapshots discovered from the data, in order
	require.Len(t, res.Snapshots, 2)
	assert.Equal(t, "1981-2010", res.Snapshots[0].Snapshot)
	assert.Equal(t, "2041-2070", res.Snapshots[1].Snapshot)

	// historical: p1 above both thresholds, p2 above fine only, p3 below
	// both
	hist := res.Snapshots[0]
	assert.Equal(t, 3, hist.Samples)
	assert.Equal(t, 1, hist.Counts[risk.CategoryExtreme])
	assert.Equal(t, 1, hist.Counts[risk.CategoryHigh])
	assert.Equal(t, 1, hist.Counts[risk.CategoryLow])

	fut := res.Snapshots[1]
	assert.Equal(t, 1, fut.Counts[risk.CategoryModerate])
	assert.Equal(t, 1, fut.Counts[risk.CategoryExtreme])
	assert.Equal(t, 1, fut.Counts[risk.CategoryLow])

	// persisted rows match the summaries
	rows, err := data.GetRiskRows(db, "global")
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.XScore, 0.0)
		assert.LessOrEqual(t, r.XScore, 1.0)
		assert.Contains(t, risk.Categories, r.Category)
	}
}

func TestRun_OffGridThresholdConsistency(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	table := seedCalibration(t, db)

	// a threshold between calibration grid nodes, with a raw score
	// sitting exactly on it
	require.NoError(t, data.SaveThresholds(db, []*data.Threshold{
		{Model: "coarse", Name: "mtss", Value: 0.33},
	}))
	require.NoError(t, data.SaveSuitability(db, "global", []*data.Suitability{
		{SampleID: "p1", Model: "coarse", Snapshot: "1981-2010", Raw: 0.33},
	}))

	_, err := Run(context.Background(), db, table, testParams("global"))
	require.NoError(t, err)

	// persisted categories agree with classifying the stored scores
	// against the fixed midpoint both query surfaces use
	rows, err := data.GetRiskRows(db, "global")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		want, cerr := risk.Classify(r.XScore, r.YScore, scale.RescaledThreshold, scale.RescaledThreshold)
		require.NoError(t, cerr)
		assert.Equal(t, want, r.Category, "sample %s snapshot %s", r.SampleID, r.Snapshot)
	}
}

func TestRun_ExplicitSnapshots(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	table := seedCalibration(t, db)

	p := testParams("global")
	p.Snapshots = []string{"2041-2070"}

	res, err := Run(context.Background(), db, table, p)
	require.NoError(t, err)
	require.Len(t, res.Snapshots, 1)
	assert.Equal(t, "2041-2070", res.Snapshots[0].Snapshot)

	rows, err := data.GetRiskRows(db, "global")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRun_Rerun(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	table := seedCalibration(t, db)

	_, err := Run(context.Background(), db, table, testParams("global"))
	require.NoError(t, err)
	_, err = Run(context.Background(), db, table, testParams("global"))
	require.NoError(t, err)

	// re-runs replace, not append
	rows, err := data.GetRiskRows(db, "global")
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestRun_Errors(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	table := seedCalibration(t, db)

	_, err := Run(context.Background(), nil, table, testParams("global"))
	assert.Error(t, err)

	_, err = Run(context.Background(), db, nil, testParams("global"))
	assert.Error(t, err)

	p := testParams("global")
	p.CoarseThreshold = "missing"
	_, err = Run(context.Background(), db, table, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, data.ErrThresholdNotFound)

	// dataset with no imported scores
	_, err = Run(context.Background(), db, table, testParams("empty"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshots found")

	// explicit snapshot with no data
	p = testParams("global")
	p.Snapshots = []string{"2100-2130"}
	_, err = Run(context.Background(), db, table, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no score pairs")
}

func TestRun_Cancelled(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	table := seedCalibration(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, db, table, testParams("global"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll(t *testing.T) {
	db := setupTestDB(t)
	seedDataset(t, db, "global")
	seedDataset(t, db, "regional")
	table := seedCalibration(t, db)

	params := []*Params{testParams("global"), testParams("regional")}

	results, err := RunAll(context.Background(), db, table, params)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "global", results[0].Dataset)
	assert.Equal(t, "regional", results[1].Dataset)

	_, err = RunAll(context.Background(), db, table, nil)
	assert.Error(t, err)

	// one bad run fails the batch
	bad := testParams("missing")
	_, err = RunAll(context.Background(), db, table, []*Params{testParams("global"), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset missing")
}
