package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/config"
	"github.com/dbdb168/fs-account-scorer/internal/fetcher"
	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// Filing caps per company: the most recent annual report, two quarterlies,
// and up to five current reports.
const (
	max10K = 1
	max10Q = 2
	max8K  = 5
)

// Edgar fetches regulatory filings from SEC EDGAR. No authentication is
// required; the SEC only asks for a contact address in the User-Agent.
type Edgar struct {
	http *fetcher.Client
	cfg  config.EdgarConfig
}

// NewEdgar creates an EDGAR source adapter.
func NewEdgar(http *fetcher.Client, cfg config.EdgarConfig) *Edgar {
	return &Edgar{http: http, cfg: cfg}
}

// submissions mirrors the shape of data.sec.gov/submissions/CIK*.json.
type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// FetchFilings returns recent filings for a company, capped at one 10-K,
// two 10-Qs, and five 8-Ks, most recent first. A company without a CIK
// (non-US filer) yields an empty list, not an error.
func (e *Edgar) FetchFilings(ctx context.Context, company model.CompanyConfig) ([]model.FilingRecord, error) {
	if company.CIK == "" {
		zap.L().Debug("edgar: skipping company without CIK",
			zap.String("company", company.ID),
		)
		return nil, nil
	}

	url := fmt.Sprintf("%s/submissions/CIK%s.json", e.cfg.BaseURL, company.CIK)
	var subs submissions
	if err := e.http.GetJSON(ctx, url, &subs); err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch submissions for %s", company.Ticker)
	}

	recent := subs.Filings.Recent
	// The submissions feed is parallel arrays; a short sibling array
	// means a malformed payload, not a shorter filing list.
	if len(recent.FilingDate) < len(recent.Form) ||
		len(recent.AccessionNumber) < len(recent.Form) ||
		len(recent.PrimaryDocument) < len(recent.Form) {
		return nil, eris.Errorf("edgar: malformed submissions for %s: uneven filing arrays", company.Ticker)
	}

	var filings []model.FilingRecord
	tenK, tenQ, eightK := 0, 0, 0

	for i := range recent.Form {
		if tenK >= max10K && tenQ >= max10Q && eightK >= max8K {
			break
		}
		var filingType string
		switch recent.Form[i] {
		case "10-K":
			if tenK >= max10K {
				continue
			}
			tenK++
			filingType = "10-K"
		case "10-Q":
			if tenQ >= max10Q {
				continue
			}
			tenQ++
			filingType = "10-Q"
		case "8-K":
			if eightK >= max8K {
				continue
			}
			eightK++
			filingType = "8-K"
		default:
			continue
		}
		filings = append(filings, model.FilingRecord{
			Company:    company.Name,
			Ticker:     company.Ticker,
			FilingType: filingType,
			FilingDate: recent.FilingDate[i],
			URL:        filingURL(company.CIK, recent.AccessionNumber[i], recent.PrimaryDocument[i]),
		})
	}

	zap.L().Info("edgar: filings fetched",
		zap.String("company", company.ID),
		zap.Int("count", len(filings)),
	)
	return filings, nil
}

// FetchDocument downloads the raw filing document for section extraction.
func (e *Edgar) FetchDocument(ctx context.Context, filing model.FilingRecord) (string, error) {
	body, err := e.http.Get(ctx, filing.URL)
	if err != nil {
		return "", eris.Wrapf(err, "edgar: fetch %s document for %s", filing.FilingType, filing.Ticker)
	}
	return string(body), nil
}

// filingURL builds the EDGAR archive URL for a primary document.
func filingURL(cik, accessionNumber, primaryDocument string) string {
	accession := strings.ReplaceAll(accessionNumber, "-", "")
	return fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/%s",
		strings.TrimLeft(cik, "0"), accession, primaryDocument)
}
