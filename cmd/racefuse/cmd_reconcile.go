package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/overlay"
	"github.com/yourusername/racefuse/internal/service"
	"github.com/yourusername/racefuse/internal/valuation"
)

var (
	raceDate   string
	raceTrack  string
	raceNumber int
	jsonOutput bool
	overrideBy string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one race, or every race of a meeting",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(raceDate)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if raceNumber > 0 {
			view, err := a.races.ReconcileRace(cmd.Context(), date, raceTrack, raceNumber)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, view)
			}
			printRace(out, view.Key, view.Ranked)
			printRaceNotes(out, view)
			return nil
		}

		summary, views, err := a.races.ReconcileMeeting(cmd.Context(), date, raceTrack)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, summary)
		}
		for i, view := range views {
			if view == nil {
				fmt.Fprintf(out, "%s: failed: %s\n\n", summary.Races[i].Key, summary.Races[i].Error)
				continue
			}
			printRace(out, view.Key, view.Ranked)
			printRaceNotes(out, view)
		}
		fmt.Fprintln(out, summary.String())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last reconciled state of a race",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(raceDate)
		if err != nil {
			return err
		}
		if raceNumber <= 0 {
			return fmt.Errorf("--race is required")
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		// Reading stored state should not need the backbone, so an
		// unresolvable track falls back to the spelling given.
		key, err := a.races.ResolveRace(cmd.Context(), date, raceTrack, raceNumber)
		if err != nil {
			key = models.NewRaceKey(date, raceTrack, raceNumber)
		}
		entrants, err := a.races.Snapshot(cmd.Context(), key)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), entrants)
		}
		printRace(cmd.OutOrStdout(), key, valuation.NewScorer(cfg.Scoring.ValueThreshold).Rank(entrants))
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Attach official results to the stored races of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(raceDate)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var opts []overlay.ResultOption
		if overrideBy != "" {
			opts = append(opts, overlay.WithOverride(overrideBy))
		}
		summary, err := a.races.SettleDay(cmd.Context(), date, opts...)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), summary)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d races, %d updated, %d results applied, %d stale, %d overridden, %d unresolved\n",
			summary.Date.Format(dateLayout), summary.Races, summary.Updated, summary.Applied,
			summary.StaleOverwrites, summary.Overridden, summary.Unresolved)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{reconcileCmd, showCmd} {
		cmd.Flags().StringVar(&raceDate, "date", "today", "Race date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&raceTrack, "track", "", "Track name")
		cmd.Flags().IntVar(&raceNumber, "race", 0, "Race number; 0 reconciles the whole meeting")
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
		_ = cmd.MarkFlagRequired("track")
	}

	settleCmd.Flags().StringVar(&raceDate, "date", "today", "Race date (YYYY-MM-DD)")
	settleCmd.Flags().StringVar(&overrideBy, "override", "", "Replace final results, recording this reason in the audit log")
	settleCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
}

func printRace(w io.Writer, key models.RaceKey, ranked []valuation.RankedEntrant) {
	fmt.Fprintf(w, "%s R%d (%s)\n", key.Track, key.RaceNumber, key.Date.Format(dateLayout))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTAB\tHORSE\tRATING\tPRICE\tWIN\tSCORE\tVALUE\tSTATUS")
	for _, r := range ranked {
		e := r.Entrant
		value := ""
		if r.ValuePlay {
			value = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
			r.Rank, intOrDash(e.TabNumber), e.HorseName, floatOrDash(e.ModelRating),
			floatOrDash(e.ModelPrice), floatOrDash(e.MarketWinPrice), e.ValueScore, value, entrantStatus(e))
	}
	_ = tw.Flush()
}

func printRaceNotes(w io.Writer, view *service.RaceView) {
	if len(view.Unresolved) > 0 {
		fmt.Fprintf(w, "Unresolved (%d):\n", len(view.Unresolved))
		for _, u := range view.Unresolved {
			fmt.Fprintf(w, "  %s %q: %s\n", u.Record.Provider, u.Record.HorseName, u.Reason)
		}
	}
	if len(view.Degraded) > 0 {
		names := make([]string, len(view.Degraded))
		for i, p := range view.Degraded {
			names[i] = string(p)
		}
		fmt.Fprintf(w, "Providers unavailable: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Status: %s\n\n", view.Summary.Status)
}

func entrantStatus(e *models.FusedEntrant) string {
	switch {
	case e.IsScratched:
		return "scratched"
	case e.FinishingPosition != nil:
		return fmt.Sprintf("finished %d", *e.FinishingPosition)
	default:
		return ""
	}
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
