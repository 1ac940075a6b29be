package models

// EffectivePrice returns the best price available for valuing an entrant:
// the rated model price, falling back to the market win price.
func (e *FusedEntrant) EffectivePrice() *float64 {
	if e.ModelPrice != nil {
		return e.ModelPrice
	}
	return e.MarketWinPrice
}

// SettlementOdds returns the odds a historical bet settles at: the official
// starting price, falling back to the model price.
func (e *FusedEntrant) SettlementOdds() (float64, bool) {
	if e.StartingPrice != nil && *e.StartingPrice > 0 {
		return *e.StartingPrice, true
	}
	if e.ModelPrice != nil && *e.ModelPrice > 0 {
		return *e.ModelPrice, true
	}
	return 0, false
}
