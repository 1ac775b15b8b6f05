// Package geoip resolves visitor addresses to countries using a local
// GeoLite2 database. Every lookup degrades to "" when no database is loaded.
package geoip

import (
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/biter777/countries"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/logging"
)

var (
	mu     sync.RWMutex
	reader *geoip2.Reader
)

var downloadURL = "https://cdn.jsdelivr.net/npm/geolite2-city/GeoLite2-City.mmdb.gz"

// Init opens the database at dbPath, fetching it first when download is set
// and the file is missing. A missing or unreadable database is not an error.
func Init(dbPath string, download bool) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if !download {
			logging.L().Info("geoip database not present, country lookups disabled", zap.String("path", dbPath))
			return nil
		}
		logging.L().Info("geoip database not found, downloading", zap.String("path", dbPath))
		if err := downloadDatabase(dbPath); err != nil {
			logging.L().Warn("geoip download failed, country lookups disabled", zap.Error(err))
			return nil
		}
	}

	r, err := geoip2.Open(dbPath)
	if err != nil {
		logging.L().Warn("could not load geoip database", zap.String("path", dbPath), zap.Error(err))
		return nil
	}

	mu.Lock()
	old := reader
	reader = r
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	logging.L().Info("geoip database loaded", zap.String("path", dbPath))
	return nil
}

// Enabled reports whether a database is loaded.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return reader != nil
}

// LookupCountry returns the ISO 3166-1 alpha-2 code for ip, or "".
func LookupCountry(ipStr string) string {
	mu.RLock()
	defer mu.RUnlock()
	if reader == nil {
		return ""
	}

	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return ""
	}

	record, err := reader.Country(ip)
	if err != nil {
		logging.L().Debug("geoip lookup failed", zap.String("ip", ipStr), zap.Error(err))
		return ""
	}
	return record.Country.IsoCode
}

// CountryName returns the English name for an alpha-2 code, or the code
// itself when unknown.
func CountryName(alpha2 string) string {
	code := strings.ToUpper(alpha2)
	for _, country := range countries.All() {
		if country.Alpha2() == code {
			return country.String()
		}
	}
	return alpha2
}

// Close closes the database.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if reader == nil {
		return nil
	}
	err := reader.Close()
	reader = nil
	return err
}

// downloadDatabase fetches the gzipped GeoLite2-City mirror and writes it
// next to dbPath before renaming it into place.
func downloadDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".geoip-*.mmdb")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, gz); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dbPath)
}
