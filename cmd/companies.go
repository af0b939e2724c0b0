package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

var companiesFile string

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the company registry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		companies, err := loadRegistry(companiesFile)
		if err != nil {
			return err
		}
		formatCompanies(os.Stdout, companies)
		return nil
	},
}

func formatCompanies(w io.Writer, companies []model.CompanyConfig) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTICKER\tSECTOR\tCOUNTRY\tCIK\tAPP")
	for _, c := range companies {
		app := "-"
		if c.AppStoreID != "" {
			app = "yes"
		}
		cik := c.CIK
		if cik == "" {
			cik = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Ticker, c.Sector, c.Country, cik, app)
	}
	_ = tw.Flush()
}

func init() {
	companiesCmd.Flags().StringVar(&companiesFile, "companies", "", "path to a YAML registry override")
	rootCmd.AddCommand(companiesCmd)
}
