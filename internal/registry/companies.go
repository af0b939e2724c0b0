package registry

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// Weights are the fixed per-category signal weights. They sum to 1.0.
type Weights struct {
	AICxInvestment    float64
	NewMarkets        float64
	NewProducts       float64
	LeadershipChanges float64
	CxIndicators      float64
}

// SignalWeights returns the rubric weights from the PRD.
func SignalWeights() Weights {
	return Weights{
		AICxInvestment:    0.30,
		NewMarkets:        0.20,
		NewProducts:       0.20,
		LeadershipChanges: 0.15,
		CxIndicators:      0.15,
	}
}

// Companies returns the fixed target list: 12 banks and 8 insurers.
// The returned slice is a fresh copy; callers may filter it freely.
func Companies() []model.CompanyConfig {
	out := make([]model.CompanyConfig, len(companies))
	copy(out, companies)
	return out
}

// Filter restricts a company list to the given ticker symbols
// (case-insensitive). Unknown tickers are ignored.
func Filter(list []model.CompanyConfig, tickers []string) []model.CompanyConfig {
	if len(tickers) == 0 {
		return list
	}
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	var out []model.CompanyConfig
	for _, c := range list {
		if want[strings.ToUpper(c.Ticker)] {
			out = append(out, c)
		}
	}
	return out
}

// LoadOverride reads a replacement company list from a YAML file.
type overrideFile struct {
	Companies []model.CompanyConfig `yaml:"companies"`
}

// LoadOverride parses and validates a YAML company list, for engagements
// that target a different account set than the built-in registry.
func LoadOverride(path string) ([]model.CompanyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read override %s", path)
	}
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "registry: parse override %s", path)
	}
	if len(f.Companies) == 0 {
		return nil, eris.Errorf("registry: override %s contains no companies", path)
	}
	if err := Validate(f.Companies); err != nil {
		return nil, err
	}
	return f.Companies, nil
}

// Validate checks registry invariants: unique non-empty IDs, known sector
// and country values, and CIK present only for US filers.
func Validate(list []model.CompanyConfig) error {
	seen := make(map[string]bool, len(list))
	for _, c := range list {
		if c.ID == "" || c.Name == "" || c.Ticker == "" {
			return eris.Errorf("registry: company %q missing id, name, or ticker", c.ID)
		}
		if seen[c.ID] {
			return eris.Errorf("registry: duplicate company id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Sector != model.SectorBank && c.Sector != model.SectorInsurance {
			return eris.Errorf("registry: company %q has unknown sector %q", c.ID, c.Sector)
		}
		if c.Country != "US" && c.Country != "CA" {
			return eris.Errorf("registry: company %q has unknown country %q", c.ID, c.Country)
		}
		if c.CIK != "" && c.Country != "US" {
			return eris.Errorf("registry: company %q has a CIK but is not a US filer", c.ID)
		}
	}
	return nil
}

var companies = []model.CompanyConfig{
	// Banks
	{ID: "jpmorgan", Name: "JPMorgan Chase", Ticker: "JPM", Sector: model.SectorBank, Country: "US", CIK: "0000019617", AppStoreID: "298867247", Domain: "jpmorganchase.com"},
	{ID: "bofa", Name: "Bank of America", Ticker: "BAC", Sector: model.SectorBank, Country: "US", CIK: "0000070858", AppStoreID: "284847138", Domain: "bankofamerica.com"},
	{ID: "wellsfargo", Name: "Wells Fargo", Ticker: "WFC", Sector: model.SectorBank, Country: "US", CIK: "0000072971", AppStoreID: "311548709", Domain: "wellsfargo.com"},
	{ID: "citi", Name: "Citigroup", Ticker: "C", Sector: model.SectorBank, Country: "US", CIK: "0000831001", AppStoreID: "301724680", Domain: "citi.com"},
	{ID: "goldmansachs", Name: "Goldman Sachs", Ticker: "GS", Sector: model.SectorBank, Country: "US", CIK: "0000886982", AppStoreID: "1489511701", Domain: "goldmansachs.com"},
	{ID: "rbc", Name: "Royal Bank of Canada", Ticker: "RY", Sector: model.SectorBank, Country: "CA", AppStoreID: "407597290", Domain: "rbc.com"},
	{ID: "td", Name: "Toronto-Dominion Bank", Ticker: "TD", Sector: model.SectorBank, Country: "CA", AppStoreID: "382107453", Domain: "td.com"},
	{ID: "bmo", Name: "Bank of Montreal", Ticker: "BMO", Sector: model.SectorBank, Country: "CA", AppStoreID: "429080319", Domain: "bmo.com"},
	{ID: "usbank", Name: "U.S. Bancorp", Ticker: "USB", Sector: model.SectorBank, Country: "US", CIK: "0000036104", AppStoreID: "458734623", Domain: "usbank.com"},
	{ID: "pnc", Name: "PNC Financial Services", Ticker: "PNC", Sector: model.SectorBank, Country: "US", CIK: "0000713676", AppStoreID: "303113127", Domain: "pnc.com"},
	{ID: "truist", Name: "Truist Financial", Ticker: "TFC", Sector: model.SectorBank, Country: "US", CIK: "0000092230", AppStoreID: "1555389200", Domain: "truist.com"},
	{ID: "capitalone", Name: "Capital One", Ticker: "COF", Sector: model.SectorBank, Country: "US", CIK: "0000927628", AppStoreID: "407558537", Domain: "capitalone.com"},

	// Insurance
	{ID: "unitedhealth", Name: "UnitedHealth Group", Ticker: "UNH", Sector: model.SectorInsurance, Country: "US", CIK: "0000731766", AppStoreID: "1348316600", Domain: "unitedhealthgroup.com"},
	{ID: "elevance", Name: "Elevance Health", Ticker: "ELV", Sector: model.SectorInsurance, Country: "US", CIK: "0001156039", AppStoreID: "1463423283", Domain: "elevancehealth.com"},
	{ID: "cigna", Name: "Cigna", Ticker: "CI", Sector: model.SectorInsurance, Country: "US", CIK: "0001739940", AppStoreID: "569266174", Domain: "cigna.com"},
	{ID: "humana", Name: "Humana", Ticker: "HUM", Sector: model.SectorInsurance, Country: "US", CIK: "0000049071", AppStoreID: "779622024", Domain: "humana.com"},
	{ID: "manulife", Name: "Manulife Financial", Ticker: "MFC", Sector: model.SectorInsurance, Country: "CA", AppStoreID: "1214009312", Domain: "manulife.com"},
	{ID: "sunlife", Name: "Sun Life Financial", Ticker: "SLF", Sector: model.SectorInsurance, Country: "CA", AppStoreID: "453274313", Domain: "sunlife.com"},
	{ID: "metlife", Name: "MetLife", Ticker: "MET", Sector: model.SectorInsurance, Country: "US", CIK: "0001099219", AppStoreID: "570085487", Domain: "metlife.com"},
	{ID: "prudential", Name: "Prudential Financial", Ticker: "PRU", Sector: model.SectorInsurance, Country: "US", CIK: "0001137774", AppStoreID: "6751651152", Domain: "prudential.com"},
}
