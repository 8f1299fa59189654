package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/service"
)

func (r *root) newSyncCmd() *cobra.Command {
	var page service.Page

	syncCmd := &cobra.Command{
		Use:   "sync [entity|all]",
		Short: "Pull one page of Vendus data into the database",
		Long: `Pull one page of an entity from Vendus and upsert it.

Entities: products, customers, documents, invoices, payment_methods,
document_types, stores, suppliers, rooms, tables.

Without an argument (or with "all") the first page of every entity
except invoices is pulled in dependency order.

Examples:
  vendussync sync
  vendussync sync customers --page 2 --per-page 50
  vendussync sync documents --sort -date`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := r.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) == 0 || args[0] == "all" {
				summary, err := app.service.SyncAll(ctx)
				printSummary(cmd, summary)
				return err
			}

			entity := model.EntityType(args[0])
			synced, err := app.service.Sync(ctx, entity, page)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", entity, synced)
			return nil
		},
	}

	syncCmd.Flags().IntVar(&page.Page, "page", 1, "page number")
	syncCmd.Flags().IntVar(&page.PerPage, "per-page", 0, "records per page (default from config)")
	syncCmd.Flags().StringVar(&page.Sort, "sort", "", "sort expression passed to Vendus")
	return syncCmd
}

func printSummary(cmd *cobra.Command, summary service.Summary) {
	entities := make([]string, 0, len(summary))
	for entity := range summary {
		entities = append(entities, string(entity))
	}
	sort.Strings(entities)
	for _, entity := range entities {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", entity, summary[model.EntityType(entity)])
	}
}
