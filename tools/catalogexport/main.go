// Package main copies a blink catalog from SQLite into MySQL, keeping
// primary keys, for setups moving to a shared database.
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/catalog"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "catalogexport",
	Short: "Copy the blink catalog from SQLite to MySQL",
	Long: `Copies routes, stations, buses, saved locations, journeys and scan
history from a SQLite catalog into MySQL. Rows already present in the target
are skipped, so the export can be rerun.`,
	RunE: runExport,
}

var cfg Config

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.SQLitePath, "sqlite-path", "", "Path to the source SQLite catalog")
	f.StringVar(&cfg.MySQLHost, "mysql-host", "localhost", "MySQL host")
	f.IntVar(&cfg.MySQLPort, "mysql-port", 3306, "MySQL port")
	f.StringVar(&cfg.MySQLUser, "mysql-user", "", "MySQL username")
	f.StringVar(&cfg.MySQLPass, "mysql-pass", "", "MySQL password")
	f.StringVar(&cfg.MySQLDatabase, "mysql-database", "blink", "MySQL database name")
	f.IntVar(&cfg.BatchSize, "batch-size", catalog.DefaultTransferBatch, "Rows per insert")
	f.BoolVar(&cfg.SkipVerify, "skip-verify", false, "Skip the row count comparison")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Print per-table timings")
	f.StringVar(&cfg.ConfigPath, "config", "", "blink config.yaml used for unset connection flags")
	rootCmd.Version = version
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %s\nTarget: %s\n", cfg.SQLitePath, cfg.SanitizedTarget())

	src, err := catalog.Open(cfg.Source())
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := catalog.Open(cfg.Target())
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	ctx := cmd.Context()
	stats, err := catalog.Transfer(ctx, src, dst, cfg.BatchSize)
	if stats != nil {
		printStats(cmd, stats)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if cfg.SkipVerify {
		return nil
	}
	mismatched, err := catalog.VerifyTransfer(ctx, src, dst)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if len(mismatched) > 0 {
		return fmt.Errorf("row counts differ for %s", strings.Join(mismatched, ", "))
	}
	fmt.Fprintln(out, "Verification passed")
	return nil
}

func printStats(cmd *cobra.Command, stats *catalog.TransferStats) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	header := "TABLE\tSOURCE\tCOPIED\tSKIPPED"
	if cfg.Verbose {
		header += "\tDURATION"
	}
	fmt.Fprintln(w, header)
	for _, t := range stats.Tables {
		line := fmt.Sprintf("%s\t%d\t%d\t%d", t.Table, t.Source, t.Copied, t.Skipped)
		if cfg.Verbose {
			line += "\t" + t.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintln(w, line)
	}
	_ = w.Flush()
}
