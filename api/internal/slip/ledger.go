package slip

import (
	"github.com/shopspring/decimal"

	"slip-bot/api/internal/coerce"
)

// LedgerItem is the allow-listed projection of a Record sent to the ledger.
// Confidence and any extractor metadata never leave the process.
type LedgerItem struct {
	Book      string           `json:"book"`
	Event     string           `json:"event"`
	Market    string           `json:"market"`
	Odd       *decimal.Decimal `json:"odd"`
	Stake     *decimal.Decimal `json:"stake"`
	Sport     string           `json:"sport,omitempty"`
	MatchDate string           `json:"match_date,omitempty"`
}

// ForLedger builds the ledger payload. A match date that never became
// canonical is sent empty rather than as free text.
func (r Record) ForLedger() LedgerItem {
	it := LedgerItem{
		Book:   r.Book,
		Event:  r.Event,
		Market: r.Market,
		Sport:  r.Sport,
	}
	if r.Odd.Valid {
		d := r.Odd.Decimal
		it.Odd = &d
	}
	if r.Stake.Valid {
		d := r.Stake.Decimal
		it.Stake = &d
	}
	if coerce.IsCanonicalDate(r.MatchDate) {
		it.MatchDate = r.MatchDate
	}
	return it
}
