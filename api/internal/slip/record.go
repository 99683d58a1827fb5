// Package slip holds the bet slip record extracted from a photo or typed by
// the user, the editable field set, and the projection sent to the ledger.
package slip

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"slip-bot/api/internal/coerce"
)

// Record is one candidate bet. Odd and Stake are absent when !Valid.
type Record struct {
	Book       string              `json:"book"`
	Event      string              `json:"event"`
	Market     string              `json:"market"`
	Odd        decimal.NullDecimal `json:"odd"`
	Stake      decimal.NullDecimal `json:"stake"`
	Sport      string              `json:"sport,omitempty"`
	MatchDate  string              `json:"match_date,omitempty"`
	Confidence *float64            `json:"confidence,omitempty"`
}

// EffectiveConfidence treats a missing score as 0.
func (r Record) EffectiveConfidence() float64 {
	if r.Confidence == nil {
		return 0
	}
	return *r.Confidence
}

// EnsureDate fills an absent match date with today. A malformed date is left
// alone so that it stays visible in review.
func (r *Record) EnsureDate(today time.Time) {
	r.MatchDate = coerce.DefaultDate(r.MatchDate, today)
}

// Missing lists required fields that are empty.
func (r Record) Missing() []Field {
	var out []Field
	if strings.TrimSpace(r.Event) == "" {
		out = append(out, FieldEvent)
	}
	if !r.Odd.Valid {
		out = append(out, FieldOdd)
	}
	if !r.Stake.Valid {
		out = append(out, FieldStake)
	}
	if strings.TrimSpace(r.Sport) == "" {
		out = append(out, FieldSport)
	}
	return out
}

// Summary is the one-line review projection of the record.
func (r Record) Summary() string {
	parts := make([]string, 0, 7)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	add(r.Book)
	add(r.Event)
	add(r.Market)
	if r.Odd.Valid {
		add("@" + r.Odd.Decimal.StringFixed(2))
	}
	if r.Stake.Valid {
		add("R$ " + r.Stake.Decimal.StringFixed(2))
	}
	add(r.Sport)
	add(r.MatchDate)
	if len(parts) == 0 {
		return "(vazio)"
	}
	return strings.Join(parts, " · ")
}

// Sanitize re-applies coercion to fields that came from an untrusted
// extractor: the book is slugified and the date canonicalized when possible.
func (r *Record) Sanitize(today time.Time) {
	r.Book = coerce.Slugify(r.Book)
	r.Event = strings.TrimSpace(r.Event)
	r.Market = strings.TrimSpace(r.Market)
	r.Sport = strings.TrimSpace(r.Sport)
	r.MatchDate = coerce.ParseDate(r.MatchDate, today)
	if r.Odd.Valid && r.Odd.Decimal.IsNegative() {
		r.Odd = decimal.NullDecimal{}
	}
	if r.Stake.Valid && r.Stake.Decimal.IsNegative() {
		r.Stake = decimal.NullDecimal{}
	}
	if r.Confidence != nil {
		c := *r.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		r.Confidence = &c
	}
}

func (r Record) String() string {
	return fmt.Sprintf("%s (conf %.2f)", r.Summary(), r.EffectiveConfidence())
}
