package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/model"
	"github.com/dbdb168/fs-account-scorer/internal/pipeline"
)

var (
	exportInput  string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a scored artifact to XLSX",
	Long:  "Reads the ranked JSON artifact produced by run and writes a spreadsheet with one row per company plus a per-signal breakdown.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		companies, err := pipeline.ReadArtifact(exportInput)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			return eris.Errorf("artifact %s contains no companies", exportInput)
		}

		if err := writeWorkbook(exportOutput, companies); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.Int("companies", len(companies)),
			zap.String("output", exportOutput),
		)
		return nil
	},
}

func writeWorkbook(path string, companies []model.Company) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Scores")
	if err != nil {
		return eris.Wrap(err, "export: add scores sheet")
	}
	addRow(sheet, "Rank", "Company", "Ticker", "Sector", "Country", "Score", "Tier", "App Rating", "Last Updated")
	for i, c := range companies {
		rating := ""
		if c.AppRating != nil {
			rating = strconv.FormatFloat(*c.AppRating, 'f', 1, 64)
		}
		addRow(sheet,
			strconv.Itoa(i+1), c.Name, c.Ticker, string(c.Sector), c.Country,
			strconv.Itoa(c.Score), string(c.Tier), rating, c.LastUpdated,
		)
	}

	signals, err := f.AddSheet("Signals")
	if err != nil {
		return eris.Wrap(err, "export: add signals sheet")
	}
	addRow(signals, "Company", "Category", "Score", "Weight", "Evidence")
	for _, c := range companies {
		for _, row := range signalRows(c.Signals) {
			evidence := ""
			if len(row.signal.Evidence) > 0 {
				evidence = row.signal.Evidence[0].Text
			}
			addRow(signals,
				c.Name, row.name,
				strconv.Itoa(row.signal.Score),
				fmt.Sprintf("%.2f", row.signal.Weight),
				evidence,
			)
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

type signalRow struct {
	name   string
	signal model.Signal
}

// signalRows returns the five categories with display names, in rubric order.
func signalRows(s model.Signals) []signalRow {
	return []signalRow{
		{"AI & CX Investment", s.AICxInvestment},
		{"New Markets", s.NewMarkets},
		{"New Products", s.NewProducts},
		{"Leadership Changes", s.LeadershipChanges},
		{"CX Indicators", s.CxIndicators},
	}
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().Value = c
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "data/companies.json", "path to the scored artifact")
	exportCmd.Flags().StringVar(&exportOutput, "output", "data/companies.xlsx", "path for the XLSX workbook")
	rootCmd.AddCommand(exportCmd)
}
