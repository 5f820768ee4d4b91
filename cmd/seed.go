package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill tables with generated rows to rehearse a migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		role := strings.ToLower(viper.GetString("seed.system"))
		if role != "source" && role != "target" {
			return fatal(fmt.Errorf("--system must be source or target, got %q", role))
		}

		db, err := connect(ctx, role)
		if err != nil {
			return err
		}
		defer db.Close()
		catalog := schema.NewCatalog(db)

		tables := tableList("seed.tables")
		if len(tables) == 0 || (len(tables) == 1 && strings.EqualFold(tables[0], engine.AllTables)) {
			if tables, err = catalog.Tables(ctx); err != nil {
				return fatal(err)
			}
		}
		count := viper.GetInt("seed.count")

		fmt.Fprintf(os.Stderr, "🌱 Seeding %d tables on %s with %d rows each\n", len(tables), role, count)
		start := time.Now()
		progress := engine.NewProgress(term.IsTerminal(int(os.Stderr.Fd())), count)
		results, err := engine.NewSeeder(db, catalog, viper.GetInt64("seed.seed")).Seed(ctx, tables, count, progress)
		if err != nil {
			return fatal(err)
		}

		fmt.Println("\n📊 Summary Report (Dependency Order):")
		var total int64
		partial := false
		for i, r := range results {
			icon := "✓"
			if r.Status != engine.StatusOK {
				icon = "!"
				partial = true
			}
			fmt.Printf("[%s] [%02d/%02d] %-20s : %d rows (Target: %d) - %s\n",
				icon, i+1, len(results), r.Table, r.Actual, r.Requested, r.Status)
			if r.Error != "" {
				fmt.Printf("    └ Error: %s\n", r.Error)
			}
			total += r.Actual
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Total Rows: %d\n", total)
		log.Infof("Seed Done! Time Elapsed: %s", time.Since(start).Round(time.Millisecond))

		if partial {
			return &ExitError{Code: ExitPartial}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("system", "source", "Which database to fill: source or target")
	seedCmd.Flags().Int("count", 10, "Number of rows to generate per table")
	seedCmd.Flags().StringSliceP("tables", "t", []string{}, "Tables to fill (default: all)")
	seedCmd.Flags().Int64("seed", 0, "Random seed for repeatable data (0 picks one)")

	viper.BindPFlag("seed.system", seedCmd.Flags().Lookup("system"))
	viper.BindPFlag("seed.count", seedCmd.Flags().Lookup("count"))
	viper.BindPFlag("seed.tables", seedCmd.Flags().Lookup("tables"))
	viper.BindPFlag("seed.seed", seedCmd.Flags().Lookup("seed"))
}
