package geoip

import (
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupWithoutDatabase(t *testing.T) {
	require.NoError(t, Close())
	assert.False(t, Enabled())
	assert.Equal(t, "", LookupCountry("8.8.8.8"))
}

func TestInitMissingDatabaseWithoutDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GeoLite2-City.mmdb")
	require.NoError(t, Init(path, false))
	assert.False(t, Enabled())
}

func TestInitCorruptDatabaseIsTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GeoLite2-City.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("not a maxmind db"), 0o644))

	require.NoError(t, Init(path, false))
	assert.False(t, Enabled())
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "Indonesia", CountryName("ID"))
	assert.Equal(t, "Indonesia", CountryName("id"))
	assert.Equal(t, "XX", CountryName("XX"))
}

func TestDownloadDatabaseWritesDecompressedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("mmdb-bytes"))
		_ = gz.Close()
	}))
	defer srv.Close()

	original := downloadURL
	downloadURL = srv.URL
	defer func() { downloadURL = original }()

	path := filepath.Join(t.TempDir(), "nested", "GeoLite2-City.mmdb")
	require.NoError(t, downloadDatabase(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mmdb-bytes", string(data))
}

func TestDownloadDatabaseReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	original := downloadURL
	downloadURL = srv.URL
	defer func() { downloadURL = original }()

	err := downloadDatabase(filepath.Join(t.TempDir(), "db.mmdb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
