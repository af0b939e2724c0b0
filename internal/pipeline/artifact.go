package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// SortByScore orders companies by descending score. The sort is stable:
// ties retain their processing order.
func SortByScore(companies []model.Company) {
	sort.SliceStable(companies, func(i, j int) bool {
		return companies[i].Score > companies[j].Score
	})
}

// WriteArtifact serializes the scored companies to path, fully
// overwriting any existing artifact. This file is the sole contract with
// the presentation layer.
func WriteArtifact(path string, companies []model.Company) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "artifact: create dir %s", dir)
		}
	}

	data, err := json.MarshalIndent(companies, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifact: marshal companies")
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "artifact: write %s", path)
	}
	return nil
}

// ReadArtifact loads a previously written artifact, for the export and
// inspection commands.
func ReadArtifact(path string) ([]model.Company, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	var companies []model.Company
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, eris.Wrapf(err, "artifact: parse %s", path)
	}
	return companies, nil
}
