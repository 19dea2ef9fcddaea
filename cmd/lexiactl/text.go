package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/textnorm"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Print the search form of text",
		Long: `Print text the way search compares it: accents removed, lower case,
whitespace collapsed. Without arguments every stdin line is normalized.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				_, err := fmt.Fprintln(out, textnorm.Normalize(strings.Join(args, " ")))
				return err
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				if _, err := fmt.Fprintln(out, textnorm.Normalize(sc.Text())); err != nil {
					return err
				}
			}
			return sc.Err()
		},
	}
}

func newHighlightCmd() *cobra.Command {
	var (
		openMark, closeMark string
		asJSON              bool
	)

	cmd := &cobra.Command{
		Use:   "highlight QUERY TEXT",
		Short: "Mark where a search query matches text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, text := args[0], args[1]
			ranges := textnorm.HighlightRanges(text, query)

			if asJSON {
				if ranges == nil {
					ranges = []textnorm.Range{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(ranges)
			}

			var b strings.Builder
			for _, seg := range textnorm.Split(text, ranges) {
				if seg.Match {
					b.WriteString(openMark + seg.Text + closeMark)
				} else {
					b.WriteString(seg.Text)
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), b.String())
			return err
		},
	}

	cmd.Flags().StringVar(&openMark, "open", "[", "marker written before a match")
	cmd.Flags().StringVar(&closeMark, "close", "]", "marker written after a match")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print byte ranges as JSON")
	return cmd
}

func newNextRunCmd() *cobra.Command {
	var (
		cronExpr string
		tz       string
		at       string
		paused   bool
	)

	cmd := &cobra.Command{
		Use:   "next-run",
		Short: "Show when the next scheduled execution happens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("timezone %q: %w", tz, err)
			}
			sched, err := core.ParseSchedule(cronExpr, loc)
			if err != nil {
				return err
			}

			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			run := core.NextExecution(sched, !paused, now.In(loc))
			out := cmd.OutOrStdout()
			if !run.Active {
				_, err := fmt.Fprintln(out, run.Label)
				return err
			}
			_, err = fmt.Fprintf(out, "%s (%s)\n%s\n", run.Label, run.Countdown, run.At.Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "0 19 * * *", "execution schedule")
	cmd.Flags().StringVar(&tz, "tz", "America/Bogota", "IANA timezone of the schedule")
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 instant instead of now")
	cmd.Flags().BoolVar(&paused, "paused", false, "report a paused solicitud")
	return cmd
}
