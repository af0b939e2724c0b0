package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

func TestSortByScore(t *testing.T) {
	companies := []model.Company{
		{ID: "a", Score: 42},
		{ID: "b", Score: 88},
		{ID: "c", Score: 60},
	}
	SortByScore(companies)

	assert.Equal(t, []string{"b", "c", "a"}, []string{companies[0].ID, companies[1].ID, companies[2].ID})
}

func TestSortByScore_StableTies(t *testing.T) {
	companies := []model.Company{
		{ID: "first", Score: 50},
		{ID: "second", Score: 50},
		{ID: "top", Score: 90},
		{ID: "third", Score: 50},
	}
	SortByScore(companies)

	assert.Equal(t, "top", companies[0].ID)
	assert.Equal(t, "first", companies[1].ID)
	assert.Equal(t, "second", companies[2].ID)
	assert.Equal(t, "third", companies[3].ID)
}

func TestWriteArtifact_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "companies.json")
	rating := 2.1
	companies := []model.Company{
		{ID: "acme-bank", Name: "Acme Bank", Score: 71, Tier: model.TierMedium, AppRating: &rating},
		{ID: "acme-insurance", Name: "Acme Insurance", Score: 33, Tier: model.TierLower},
	}

	require.NoError(t, WriteArtifact(path, companies))

	got, err := ReadArtifact(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "acme-bank", got[0].ID)
	require.NotNil(t, got[0].AppRating)
	assert.Equal(t, 2.1, *got[0].AppRating)
	assert.Nil(t, got[1].AppRating)
}

func TestWriteArtifact_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.json")

	require.NoError(t, WriteArtifact(path, []model.Company{{ID: "old"}, {ID: "stale"}}))
	require.NoError(t, WriteArtifact(path, []model.Company{{ID: "fresh"}}))

	got, err := ReadArtifact(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "stale")
	assert.True(t, strings.HasSuffix(string(raw), "\n"))
}

func TestReadArtifact_Missing(t *testing.T) {
	_, err := ReadArtifact(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
