package geodata

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFetchShapefile_DownloadsAndExtracts(t *testing.T) {
	zipContent := createTestZIP(t, map[string]string{
		"tl_2025_41_place.shp": "fake shapefile data",
		"tl_2025_41_place.dbf": "fake dbf data",
		"tl_2025_41_place.shx": "fake shx data",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(zipContent)
	}))
	defer srv.Close()

	shpPath, err := fetchShapefile(context.Background(), nil, srv.URL+"/tl_2025_41_place.zip", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, shpPath, ".shp")
	assert.FileExists(t, shpPath)
}

func TestFetchShapefile_UsesCachedArchive(t *testing.T) {
	zipContent := createTestZIP(t, map[string]string{
		"tl_2025_41_place.shp": "fake shapefile data",
	})

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(zipContent)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	url := srv.URL + "/tl_2025_41_place.zip"

	_, err := fetchShapefile(context.Background(), nil, url, destDir)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = fetchShapefile(context.Background(), nil, url, destDir)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second run should reuse the cached ZIP")
}

func TestFetchShapefile_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetchShapefile(context.Background(), nil, srv.URL+"/bad.zip", t.TempDir())
	assert.Error(t, err)
}

func TestFetchShapefile_NoShpMember(t *testing.T) {
	zipContent := createTestZIP(t, map[string]string{
		"readme.txt": "no shapefile here",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(zipContent)
	}))
	defer srv.Close()

	_, err := fetchShapefile(context.Background(), nil, srv.URL+"/tl_2025_41_place.zip", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}
