package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/logging"
	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	file     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lexiactl",
		Short: "Query and export monitoring records from the command line",
		Long: `lexiactl runs the dashboard's table pipeline over a JSON export of
solicitudes or historial records: accent-insensitive search, column
filters, sorting, pagination and CSV export.

Records are read from --file, or from stdin when --file is "-". The file
holds a JSON array of objects, optionally wrapped under "items", "data"
or "results".

Examples:
  # Search historial for a court, newest first
  lexiactl query -f historial.json --search "juzgado civil" --sort fecha_ejecucion --dir desc

  # Only failed extractions, as CSV
  lexiactl export -f historial.json --filter estado_extraccion=in:error_captcha,error_sistema

  # When is the next run?
  lexiactl next-run --tz America/Bogota`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "-", "JSON records file, - for stdin")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newQueryCmd(opts),
		newExportCmd(opts),
		newNormalizeCmd(),
		newHighlightCmd(),
		newNextRunCmd(),
	)
	return cmd
}

// logger writes to stderr so stdout carries only command output.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.logLevel, "text")
}

// loadRecords reads the records file, or stdin for "-".
func (o *rootOptions) loadRecords(cmd *cobra.Command) ([]tablequery.Record, error) {
	var r io.Reader = cmd.InOrStdin()
	if o.file != "" && o.file != "-" {
		f, err := os.Open(o.file)
		if err != nil {
			return nil, fmt.Errorf("open records: %w", err)
		}
		defer f.Close()
		r = f
	}

	records, err := core.DecodeRecords(r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", o.file, err)
	}
	o.logger(cmd).Debug("records loaded", "file", o.file, "count", len(records))
	return records, nil
}

// allKeys returns every field name present in records, sorted.
func allKeys(records []tablequery.Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}
