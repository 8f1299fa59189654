package cmd

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/source"
)

func (r *root) newSAFTCmd() *cobra.Command {
	saftCmd := &cobra.Command{
		Use:   "saft",
		Short: "SAF-T accounting files",
	}

	var company model.Company
	importCmd := &cobra.Command{
		Use:   "import <path|s3://bucket/key>",
		Short: "Import a SAF-T file into the ledger",
		Long: `Import chart of accounts, partners and journal entries from a SAF-T file.

Examples:
  vendussync saft import ./saft_2024.xml --company 1
  vendussync saft import s3://exports/saft_2024.xml --company 1 --line-mode split`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if company.ID <= 0 {
				return errors.New("--company is required")
			}
			company.Country = strings.ToUpper(company.Country)
			company.CurrencyCode = strings.ToUpper(company.CurrencyCode)

			ctx := cmd.Context()

			src, err := source.NewSource(ctx, r.cfg.Source)
			if err != nil {
				return err
			}
			raw, err := src.Read(ctx, args[0])
			if err != nil {
				return err
			}

			app, err := r.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.service.ImportSAFT(ctx, raw, company)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	importCmd.Flags().Int64Var(&company.ID, "company", 0, "company id")
	importCmd.Flags().StringVar(&company.Country, "country", "", "company country code (default from config)")
	importCmd.Flags().StringVar(&company.CurrencyCode, "currency", "", "company currency code")
	importCmd.Flags().String("line-mode", "", "single or split")
	r.v.BindPFlag("saft.line_mode", importCmd.Flags().Lookup("line-mode"))

	saftCmd.AddCommand(importCmd)
	return saftCmd
}
