package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/racefuse/internal/backtest"
	"github.com/yourusername/racefuse/internal/weather"
)

var (
	rangeFrom   string
	rangeTo     string
	settledOnly bool
	csvPath     string
	metricName  string
	targetName  string
	filterTrack string
	allPairs    bool
	withBuckets bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the level-stake simulation over stored races",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(rangeFrom, rangeTo)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.analysis.Simulate(cmd.Context(), from, to, settledOnly)
		if err != nil {
			return err
		}
		if csvPath != "" {
			if err := backtest.GenerateCSVExport(report, csvPath); err != nil {
				return fmt.Errorf("failed to write equity curve: %w", err)
			}
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateConsoleReport(report))
		return nil
	},
}

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate weather metrics with race outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(rangeFrom, rangeTo)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		filter := weather.Filter{Track: filterTrack}
		out := cmd.OutOrStdout()

		if allPairs {
			results, err := a.analysis.CorrelateAll(cmd.Context(), from, to, filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, results)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "METRIC\tTARGET\tR\tN\tSIGNIFICANT")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%d\t%v\n", r.MetricName, r.TargetName, r.PearsonR, r.SampleSize, r.Significant)
			}
			return tw.Flush()
		}

		res, err := a.analysis.Correlate(cmd.Context(), from, to, metricName, targetName, filter)
		if err != nil {
			return err
		}
		if jsonOutput && !withBuckets {
			return writeJSON(out, res)
		}
		fmt.Fprintf(out, "%s vs %s: r=%.3f n=%d significant=%v\n",
			res.MetricName, res.TargetName, res.PearsonR, res.SampleSize, res.Significant)

		if withBuckets {
			buckets, err := a.analysis.Buckets(cmd.Context(), from, to, metricName, targetName, filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "BUCKET\tCOUNT\tMEAN\tSTDDEV")
			for _, b := range buckets {
				fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\n", b.Label, b.Count, b.Mean, b.StdDev)
			}
			return tw.Flush()
		}
		return nil
	},
}

var importWeatherCmd = &cobra.Command{
	Use:   "import-weather",
	Short: "Copy weather observations from the backbone provider into the record store",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(rangeFrom, rangeTo)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.analysis.ImportWeather(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d weather samples\n", n)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{simulateCmd, correlateCmd, importWeatherCmd} {
		cmd.Flags().StringVar(&rangeFrom, "from", "today", "First race date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&rangeTo, "to", "", "Last race date (YYYY-MM-DD); defaults to --from")
	}

	simulateCmd.Flags().BoolVar(&settledOnly, "settled", false, "Leave out entrants still waiting on a result")
	simulateCmd.Flags().StringVar(&csvPath, "csv", "", "Write the equity curve to this CSV file")
	simulateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	correlateCmd.Flags().StringVar(&metricName, "metric", "wind_speed", "Weather metric")
	correlateCmd.Flags().StringVar(&targetName, "target", "winning_time", "Outcome target")
	correlateCmd.Flags().StringVar(&filterTrack, "track", "", "Only races at this track")
	correlateCmd.Flags().BoolVar(&allPairs, "all", false, "Correlate every metric against every target")
	correlateCmd.Flags().BoolVar(&withBuckets, "buckets", false, "Also print the bucket analysis")
	correlateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
}
