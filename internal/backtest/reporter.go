package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a simulation report for terminal output
func GenerateConsoleReport(r *Report) string {
	var builder strings.Builder
	builder.WriteString("Staking Simulation\n")
	builder.WriteString("==================\n")
	builder.WriteString(fmt.Sprintf("Mode: %s\n", r.Mode))
	builder.WriteString(fmt.Sprintf("Bets: %d (wins %d, placings %d, pending %d, excluded %d)\n",
		r.Bets, r.Wins, r.Placings, r.Pending, r.Excluded))
	builder.WriteString(fmt.Sprintf("Total Staked: %s\n", r.TotalStaked.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Total Returned: %s\n", r.TotalReturned.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Profit: %s\n", r.Profit.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("ROI: %.2f%%\n", r.ROI))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", r.WinRate*100))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %s\n", r.MaxDrawdown.StringFixed(2)))
	return builder.String()
}

// GenerateCSVExport writes the per-wager equity curve for spreadsheets
func GenerateCSVExport(r *Report, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(r.Equity.ToCSV()), 0o644)
}
