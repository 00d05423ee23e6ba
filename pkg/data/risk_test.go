package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieco-lab/scarifSDM/pkg/risk"
)

func TestSaveRisk_ReplacesSnapshot(t *testing.T) {
	db := setupTestDB(t)

	first := []*RiskRow{
		{SampleID: "p1", Snapshot: "1981-2010", XScore: 0.6, YScore: 0.6, Category: risk.CategoryExtreme},
		{SampleID: "p2", Snapshot: "1981-2010", XScore: 0.4, YScore: 0.4, Category: risk.CategoryLow},
	}
	require.NoError(t, SaveRisk(db, "global", "1981-2010", first))

	got, err := GetRiskRows(db, "global")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, risk.CategoryExtreme, got[0].Category)

	// a re-run replaces the snapshot rows wholesale
	second := []*RiskRow{
		{SampleID: "p1", Snapshot: "1981-2010", XScore: 0.3, YScore: 0.7, Category: risk.CategoryHigh},
	}
	require.NoError(t, SaveRisk(db, "global", "1981-2010", second))

	got, err = GetRiskRows(db, "global")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].SampleID)
	assert.Equal(t, risk.CategoryHigh, got[0].Category)
	assert.Equal(t, 0.3, got[0].XScore)

	// other snapshots are untouched
	require.NoError(t, SaveRisk(db, "global", "2041-2070", []*RiskRow{
		{SampleID: "p1", Snapshot: "2041-2070", XScore: 0.8, YScore: 0.2, Category: risk.CategoryModerate},
	}))
	require.NoError(t, SaveRisk(db, "global", "1981-2010", second))

	got, err = GetRiskRows(db, "global")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.Error(t, SaveRisk(db, "", "1981-2010", first))
	assert.Error(t, SaveRisk(db, "global", "", first))
}

func TestGetCategoryCounts(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, SaveRisk(db, "global", "1981-2010", []*RiskRow{
		{SampleID: "p1", Snapshot: "1981-2010", XScore: 0.6, YScore: 0.6, Category: risk.CategoryExtreme},
		{SampleID: "p2", Snapshot: "1981-2010", XScore: 0.7, YScore: 0.8, Category: risk.CategoryExtreme},
		{SampleID: "p3", Snapshot: "1981-2010", XScore: 0.4, YScore: 0.4, Category: risk.CategoryLow},
	}))
	require.NoError(t, SaveRisk(db, "global", "2041-2070", []*RiskRow{
		{SampleID: "p1", Snapshot: "2041-2070", XScore: 0.3, YScore: 0.6, Category: risk.CategoryHigh},
	}))

	counts, err := GetCategoryCounts(db, "global")
	require.NoError(t, err)
	require.Len(t, counts, 3)

	byKey := make(map[string]int)
	for _, c := range counts {
		byKey[c.Snapshot+"/"+string(c.Category)] = c.Count
	}
	assert.Equal(t, 2, byKey["1981-2010/extreme"])
	assert.Equal(t, 1, byKey["1981-2010/low"])
	assert.Equal(t, 1, byKey["2041-2070/high"])
}

func TestGetRiskPairs(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, SaveRisk(db, "global", "1981-2010", []*RiskRow{
		{SampleID: "p1", Snapshot: "1981-2010", XScore: 0.4, YScore: 0.6, Category: risk.CategoryHigh},
		{SampleID: "p2", Snapshot: "1981-2010", XScore: 0.7, YScore: 0.7, Category: risk.CategoryExtreme},
	}))
	require.NoError(t, SaveRisk(db, "global", "2041-2070", []*RiskRow{
		{SampleID: "p1", Snapshot: "2041-2070", XScore: 0.6, YScore: 0.3, Category: risk.CategoryModerate},
	}))

	pairs, err := GetRiskPairs(db, "global", "1981-2010", "2041-2070")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "p1", pairs[0].SampleID)
	assert.Equal(t, 0.4, pairs[0].HX)
	assert.Equal(t, 0.6, pairs[0].HY)
	assert.Equal(t, 0.6, pairs[0].FX)
	assert.Equal(t, 0.3, pairs[0].FY)

	pairs, err = GetRiskPairs(db, "regional", "1981-2010", "2041-2070")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
