package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all rows from tables, children first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		role := strings.ToLower(viper.GetString("clean.system"))
		if role != "source" && role != "target" {
			return fatal(fmt.Errorf("--system must be source or target, got %q", role))
		}

		db, err := connect(ctx, role)
		if err != nil {
			return err
		}
		defer db.Close()
		catalog := schema.NewCatalog(db)

		tables := tableList("clean.tables")
		if len(tables) == 0 {
			return fatal(fmt.Errorf("--tables is required (use 'all' for every table)"))
		}
		if len(tables) == 1 && strings.EqualFold(tables[0], engine.AllTables) {
			if tables, err = catalog.Tables(ctx); err != nil {
				return fatal(err)
			}
		}

		fmt.Printf("🧹 Cleaning %d tables on %s\n", len(tables), role)
		results, err := engine.Clean(ctx, db, catalog, tables)
		if err != nil {
			return fatal(err)
		}
		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
				fmt.Printf("[!] %-20s : %s\n", r.Table, r.Error)
			}
		}
		if failed > 0 {
			return &ExitError{Code: ExitPartial, Err: fmt.Errorf("%d tables could not be cleaned", failed)}
		}
		fmt.Println("Database Cleaned Successfully!")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().String("system", "target", "Which database to clean: source or target")
	cleanCmd.Flags().StringSliceP("tables", "t", []string{}, "Tables to clean (comma-separated, or 'all')")

	viper.BindPFlag("clean.system", cleanCmd.Flags().Lookup("system"))
	viper.BindPFlag("clean.tables", cleanCmd.Flags().Lookup("tables"))
}
