package backtest

import (
	"bytes"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is the running profit after one wager
type EquityPoint struct {
	Time     time.Time       `json:"time"`
	Profit   decimal.Decimal `json:"profit"`
	Drawdown decimal.Decimal `json:"drawdown"`
}

// EquityCurve is the running profit of a simulation in wager order
type EquityCurve []EquityPoint

func (e *EquityCurve) append(t time.Time, profit decimal.Decimal) {
	peak := decimal.Zero
	if n := len(*e); n > 0 {
		peak = (*e)[n-1].Profit.Add((*e)[n-1].Drawdown)
	}
	if profit.GreaterThan(peak) {
		peak = profit
	}
	*e = append(*e, EquityPoint{Time: t, Profit: profit, Drawdown: peak.Sub(profit)})
}

// MaxDrawdown returns the largest fall from a running profit peak
func (e EquityCurve) MaxDrawdown() decimal.Decimal {
	maxDD := decimal.Zero
	for _, p := range e {
		if p.Drawdown.GreaterThan(maxDD) {
			maxDD = p.Drawdown
		}
	}
	return maxDD
}

// ToCSV exports equity curve to CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("index,time,profit,drawdown\n")
	for i, point := range e {
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteString(",")
		buf.WriteString(point.Time.Format("2006-01-02"))
		buf.WriteString(",")
		buf.WriteString(point.Profit.StringFixed(2))
		buf.WriteString(",")
		buf.WriteString(point.Drawdown.StringFixed(2))
		buf.WriteString("\n")
	}
	return buf.String()
}
