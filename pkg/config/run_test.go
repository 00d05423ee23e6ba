package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieco-lab/scarifSDM/pkg/pipeline"
)

func TestRunSpecValidate(t *testing.T) {
	s := Example()
	require.NoError(t, s.Validate())

	empty := &RunSpec{}
	assert.Error(t, empty.Validate())

	bad := &RunSpec{Runs: []*pipeline.Params{{Dataset: "global"}}}
	assert.Error(t, bad.Validate())

	dup := Example()
	dup.Runs = append(dup.Runs, dup.Runs[0])
	err := dup.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate dataset")
}

func TestSaveAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.yaml")

	s := Example()
	s.Clamp = true
	require.NoError(t, Save(path, s))

	got, err := Read(path)
	require.NoError(t, err)
	assert.True(t, got.Clamp)
	require.Len(t, got.Runs, 1)
	assert.Equal(t, s.Runs[0].Dataset, got.Runs[0].Dataset)
	assert.Equal(t, s.Runs[0].CoarseModel, got.Runs[0].CoarseModel)
	assert.Equal(t, s.Runs[0].Snapshots, got.Runs[0].Snapshots)
}

func TestReadErrors(t *testing.T) {
	_, err := Read("")
	assert.Error(t, err)

	_, err = Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	// invalid yaml
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runs: [\n"), 0600))
	_, err = Read(path)
	assert.Error(t, err)

	// valid yaml, invalid spec
	require.NoError(t, os.WriteFile(path, []byte("clamp: true\n"), 0600))
	_, err = Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestSaveErrors(t *testing.T) {
	assert.Error(t, Save("", Example()))

	path := filepath.Join(t.TempDir(), "runs.yaml")
	assert.Error(t, Save(path, nil))
	assert.Error(t, Save(path, &RunSpec{}))
}
