package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

func TestSaveAndGetCalibration(t *testing.T) {
	db := setupTestDB(t)

	// empty table is a user-facing error, not an empty result
	_, err := GetCalibration(db, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calibration table not loaded")

	built, err := scale.BuildTable(0.1, 0.9, 0.1, false)
	require.NoError(t, err)
	require.NoError(t, SaveCalibration(db, built.Rows()))

	table, err := GetCalibration(db, false)
	require.NoError(t, err)
	assert.Equal(t, built.Len(), table.Len())
	assert.Equal(t, built.Min(), table.Min())
	assert.Equal(t, built.Max(), table.Max())
	assert.False(t, table.Clamped())

	// stored coefficients round-trip exactly
	want, err := built.Coefficient(0.3)
	require.NoError(t, err)
	got, err := table.Coefficient(0.3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// clamp policy is a load-time choice
	table, err = GetCalibration(db, true)
	require.NoError(t, err)
	assert.True(t, table.Clamped())

	assert.Error(t, SaveCalibration(db, nil))
}

func TestSaveCalibration_Upsert(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, SaveCalibration(db, []scale.Row{{Threshold: 0.3, C2: 0.05}}))
	require.NoError(t, SaveCalibration(db, []scale.Row{{Threshold: 0.3, C2: 0.06}}))

	table, err := GetCalibration(db, false)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	c2, err := table.Coefficient(0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.06, c2)
}
