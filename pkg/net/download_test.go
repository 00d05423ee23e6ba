package net

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	c, err := GetHTTPClient()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NotNil(t, c.Jar)
	assert.NotNil(t, c.Transport)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/samples.csv":
			w.Write([]byte("id,x,y,model,snapshot,suitability\n"))
		case "/missing.csv":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()

	path := filepath.Join(dir, "samples.csv")
	require.NoError(t, Download(srv.URL+"/samples.csv", path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,x,y,model,snapshot,suitability\n", string(b))

	err = Download(srv.URL+"/missing.csv", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrorURLNotFound)

	err = Download(srv.URL+"/broken.csv", filepath.Join(dir, "broken.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")

	assert.Error(t, Download("", filepath.Join(dir, "none.csv")))
}
