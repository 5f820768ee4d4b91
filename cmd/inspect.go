package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-migrate/internal/convert"
	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how each table differs between source and target",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, err := connect(ctx, "source")
		if err != nil {
			return err
		}
		defer source.Close()
		target, err := connect(ctx, "target")
		if err != nil {
			return err
		}
		defer target.Close()

		srcCatalog, dstCatalog := schema.NewCatalog(source), schema.NewCatalog(target)
		tables := tableList("inspect.tables")
		if len(tables) == 0 || (len(tables) == 1 && strings.EqualFold(tables[0], engine.AllTables)) {
			if tables, err = dstCatalog.Tables(ctx); err != nil {
				return fatal(err)
			}
		}

		apply := viper.GetBool("inspect.apply")
		syncer := &engine.Syncer{
			Target:     target,
			Reconciler: convert.New(time.Now()),
			DryRun:     viper.GetBool("inspect.dry_run"),
		}

		drifts := []*schema.Drift{}
		missing := []string{}
		synced := []*engine.SyncResult{}
		for _, t := range tables {
			src, err := srcCatalog.Describe(ctx, t)
			if err == nil {
				var dst *schema.TableSchema
				if dst, err = dstCatalog.Describe(ctx, t); err == nil {
					drift := schema.Compare(src, dst)
					drifts = append(drifts, drift)
					if apply && len(drift.SourceOnly) > 0 {
						res, err := syncer.AddMissingColumns(ctx, src, dst)
						if err != nil {
							return fatal(err)
						}
						synced = append(synced, res)
					}
					continue
				}
			}
			var nf *schema.SchemaNotFoundError
			if !errors.As(err, &nf) {
				return fatal(err)
			}
			log.WithField("table", t).Warn(nf)
			missing = append(missing, nf.Error())
		}

		if viper.GetBool("inspect.json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"tables": drifts, "missing": missing, "synced": synced}); err != nil {
				return err
			}
		} else {
			for _, d := range drifts {
				printDrift(d)
			}
			for _, m := range missing {
				fmt.Printf("[-] %s\n", m)
			}
			printSynced(synced, syncer.DryRun)
		}

		for _, r := range synced {
			if r.Failed() > 0 {
				return &ExitError{Code: ExitPartial, Err: fmt.Errorf("%d column(s) of %s could not be added", r.Failed(), r.Table)}
			}
		}
		return nil
	},
}

func printDrift(d *schema.Drift) {
	icon := "✓"
	if !d.Clean() {
		icon = "!"
	}
	fmt.Printf("[%s] %s\n", icon, d.Table)
	for _, c := range d.Common {
		if c.Changed {
			fmt.Printf("    ~ %-24s %s -> %s\n", c.Name, c.SourceType, c.TargetType)
		}
	}
	for _, c := range d.SourceOnly {
		fmt.Printf("    - %-24s dropped (source only)\n", c)
	}
	for _, c := range d.TargetOnly {
		fmt.Printf("    + %-24s target default (target only)\n", c)
	}
	for _, c := range d.Unfillable {
		fmt.Printf("    ✗ %-24s NOT NULL without source or default: inserts will fail\n", c)
	}
}

func printSynced(synced []*engine.SyncResult, dryRun bool) {
	verb := "📝 Adding"
	if dryRun {
		verb = "📝 Would add"
	}
	for _, r := range synced {
		for _, c := range r.Columns {
			if c.Error != "" {
				fmt.Printf("❌ %s.%s: %s\n", r.Table, c.Column, c.Error)
				continue
			}
			fmt.Printf("%s: %s.%s\n", verb, r.Table, c)
		}
	}
}

func init() {
	RootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringSliceP("tables", "t", []string{}, "Tables to inspect (default: every target table)")
	inspectCmd.Flags().Bool("json", false, "Print the drift report as JSON")
	inspectCmd.Flags().Bool("apply", false, "Add source-only columns to the target tables")
	inspectCmd.Flags().Bool("dry-run", false, "With --apply, print the columns without adding them")

	viper.BindPFlag("inspect.tables", inspectCmd.Flags().Lookup("tables"))
	viper.BindPFlag("inspect.json", inspectCmd.Flags().Lookup("json"))
	viper.BindPFlag("inspect.apply", inspectCmd.Flags().Lookup("apply"))
	viper.BindPFlag("inspect.dry_run", inspectCmd.Flags().Lookup("dry-run"))
}
