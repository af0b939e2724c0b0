package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

func TestLoadRegistry_Default(t *testing.T) {
	companies, err := loadRegistry("")
	require.NoError(t, err)
	assert.Len(t, companies, 20)
}

func TestLoadRegistry_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`companies:
  - id: test-bank
    name: Test Bank
    ticker: TB
    sector: bank
    country: US
`), 0o644))

	companies, err := loadRegistry(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "test-bank", companies[0].ID)
}

func TestLoadRegistry_BadPath(t *testing.T) {
	_, err := loadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFormatCompanies(t *testing.T) {
	var buf bytes.Buffer
	formatCompanies(&buf, []model.CompanyConfig{
		{ID: "acme", Ticker: "ACME", Sector: model.SectorBank, Country: "US", CIK: "0000012345", AppStoreID: "1"},
		{ID: "north", Ticker: "NO", Sector: model.SectorInsurance, Country: "CA"},
	})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "0000012345")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "north")
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{
		{ID: "run-1", Status: model.RunStatusComplete, Companies: 20,
			StartedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), ArtifactPath: "data/companies.json"},
	})

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "2025-06-01 09:00:00")
}

func TestSignalRows_Order(t *testing.T) {
	rows := signalRows(model.Signals{})
	require.Len(t, rows, 5)
	assert.Equal(t, "AI & CX Investment", rows[0].name)
	assert.Equal(t, "CX Indicators", rows[4].name)
}
