package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"db-migrate/internal/convert"
	"db-migrate/internal/database"
	"db-migrate/internal/engine"
	"db-migrate/internal/schema"
)

var noSuspend bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy table rows from the source into the target",
	Example: `  db-migrate migrate --source 'user:pw@tcp(legacy:3306)/shop' \
    --target 'postgres://user:pw@new:5432/shop' --tables all --mode replace --critical orders`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run, err := newMigrateRun()
		if err != nil {
			return fatal(err)
		}

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

		return run.execute(ctx, source, target)
	},
}

// migrateRun is one migrate invocation with its settings resolved.
type migrateRun struct {
	opts        engine.Options
	tables      []string
	critical    []string
	allowCycles bool
	sampleRows  int
	reportFile  string
	progress    engine.Progress

	stdout io.Writer
	stderr io.Writer
}

func newMigrateRun() (*migrateRun, error) {
	mode, err := engine.ParseMode(viper.GetString("migrate.mode"))
	if err != nil {
		return nil, err
	}
	tables := tableList("migrate.tables")
	if len(tables) == 0 {
		tables = []string{engine.AllTables}
	}
	return &migrateRun{
		opts: engine.Options{
			Mode:               mode,
			BatchSize:          viper.GetInt("migrate.batch_size"),
			DryRun:             viper.GetBool("migrate.dry_run"),
			SuspendConstraints: viper.GetBool("migrate.suspend_constraints") && !noSuspend,
			BatchTimeout:       viper.GetDuration("migrate.batch_timeout"),
			ErrorLength:        viper.GetInt("migrate.error_length"),
			SampleFailures:     viper.GetInt("migrate.sample_failures"),
		},
		tables:      tables,
		critical:    tableList("migrate.critical"),
		allowCycles: viper.GetBool("migrate.allow_cycles"),
		sampleRows:  viper.GetInt("verify.sample_rows"),
		reportFile:  viper.GetString("migrate.report_file"),
		progress:    engine.NewProgress(term.IsTerminal(int(os.Stderr.Fd())), viper.GetInt("migrate.progress_every")),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}, nil
}

// execute plans and runs the migration, then verifies and reports it. The
// returned *ExitError carries the process exit code: ExitCycle for an unbroken
// dependency cycle, ExitFatal when a system was lost or constraints could not be
// restored, ExitPartial when rows were rejected.
func (r *migrateRun) execute(ctx context.Context, source, target database.Handle) error {
	fmt.Fprintf(r.stderr, "🚚 %s -> %s (mode: %s, batch: %d)\n",
		source.Dialect().Name(), target.Dialect().Name(), r.opts.Mode, r.opts.BatchSize)
	if r.opts.DryRun {
		log.Info("[SIMULATION] Dry-Run Mode Active: No data will be written.")
	}

	srcCatalog, dstCatalog := schema.NewCatalog(source), schema.NewCatalog(target)
	planner := &engine.Planner{
		Source:      srcCatalog,
		Target:      dstCatalog,
		Reconciler:  convert.New(time.Now()),
		AllowCycles: r.allowCycles,
	}
	log.Info("Analyzing schema...")
	plan, err := planner.Build(ctx, r.tables)
	var cycle *schema.CycleError
	if errors.As(err, &cycle) {
		fmt.Fprintf(r.stderr, "🔁 %v\n   rerun with --allow-cycles to migrate them with constraints suspended\n", cycle)
		return &ExitError{Code: ExitCycle, Err: cycle}
	}
	if err != nil {
		return fatal(err)
	}

	migrator := engine.NewMigrator(source, target, r.opts, r.progress)
	report, runErr := migrator.Migrate(ctx, plan)

	verifier := &engine.Verifier{Source: srcCatalog, Target: dstCatalog, SampleRows: r.sampleRows}
	report.Verification = verifier.Verify(context.WithoutCancel(ctx), plan.Order, r.critical)

	if err := writeReport(r.stdout, report, r.reportFile); err != nil {
		return fatal(err)
	}
	printSummary(r.stderr, report)

	if runErr != nil {
		return fatal(runErr)
	}
	if !report.Complete() {
		return &ExitError{Code: ExitPartial}
	}
	return nil
}

func writeReport(w io.Writer, report *engine.RunReport, path string) error {
	if err := report.WriteJSON(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	if err := report.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	log.Infof("Report written to %s", path)
	return nil
}

func printSummary(w io.Writer, r *engine.RunReport) {
	fmt.Fprintln(w, "\n📊 Summary Report (Dependency Order):")
	for i, t := range r.Tables {
		icon := "✓"
		if t.Status != engine.StatusOK {
			icon = "!"
		}
		fmt.Fprintf(w, "[%s] [%02d/%02d] %-20s : %d/%d rows - %s\n",
			icon, i+1, len(r.Tables), t.Table, t.Migrated, t.Attempted, t.Status)
		if t.Error != "" {
			fmt.Fprintf(w, "    └ Error: %s\n", t.Error)
		}
		for _, f := range t.SampleFailures {
			fmt.Fprintf(w, "    └ %s: %s\n", f.Row, f.Reason)
		}
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "[-] %-28s : skipped - %s\n", s.Table, s.Reason)
	}
	if v := r.Verification; v != nil && len(v.Mismatched) > 0 {
		fmt.Fprintf(w, "⚠️  Row counts differ for: %v\n", v.Mismatched)
	}
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total: %d attempted, %d migrated, %d failed, %d tables skipped (%s)\n",
		r.Summary.TotalAttempted, r.Summary.TotalMigrated, r.Summary.TotalFailed, r.Summary.TablesSkipped,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	f := migrateCmd.Flags()
	f.StringSliceP("tables", "t", []string{}, "Tables to migrate (comma-separated, or 'all')")
	f.String("mode", string(engine.Replace), "replace deletes target rows first; append keeps them")
	f.Int("batch-size", engine.DefaultBatchSize, "Rows per read page and insert batch")
	f.StringSlice("critical", []string{}, "Tables whose target rows are sampled in the verification report")
	f.Bool("dry-run", false, "Read and convert without writing to the target")
	f.BoolVar(&noSuspend, "no-suspend-constraints", false, "Keep foreign key enforcement on during the run")
	f.Bool("allow-cycles", false, "Migrate tables caught in a foreign key cycle after the others")
	f.String("report", "", "Also write the JSON report to this file")
	f.Duration("batch-timeout", engine.DefaultBatchTimeout, "Timeout for each read or write round trip")

	viper.BindPFlag("migrate.tables", f.Lookup("tables"))
	viper.BindPFlag("migrate.mode", f.Lookup("mode"))
	viper.BindPFlag("migrate.batch_size", f.Lookup("batch-size"))
	viper.BindPFlag("migrate.critical", f.Lookup("critical"))
	viper.BindPFlag("migrate.dry_run", f.Lookup("dry-run"))
	viper.BindPFlag("migrate.allow_cycles", f.Lookup("allow-cycles"))
	viper.BindPFlag("migrate.report_file", f.Lookup("report"))
	viper.BindPFlag("migrate.batch_timeout", f.Lookup("batch-timeout"))

	viper.SetDefault("migrate.suspend_constraints", true)
	viper.SetDefault("migrate.progress_every", engine.DefaultProgressEvery)
	viper.SetDefault("migrate.error_length", engine.DefaultErrorLength)
	viper.SetDefault("migrate.sample_failures", engine.DefaultSampleFailures)
	viper.SetDefault("verify.sample_rows", engine.DefaultSampleRows)
}
