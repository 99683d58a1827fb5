package slip

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"slip-bot/api/internal/coerce"
)

// Field names one editable record attribute.
type Field string

const (
	FieldBook   Field = "book"
	FieldEvent  Field = "event"
	FieldMarket Field = "market"
	FieldOdd    Field = "odd"
	FieldStake  Field = "stake"
	FieldSport  Field = "sport"
	FieldDate   Field = "date"
)

// Fields is the picker order.
var Fields = []Field{FieldBook, FieldEvent, FieldMarket, FieldOdd, FieldStake, FieldSport, FieldDate}

// ClearValue typed by the user empties a field.
const ClearValue = "-"

var labels = map[Field]string{
	FieldBook:   "Casa",
	FieldEvent:  "Evento",
	FieldMarket: "Mercado",
	FieldOdd:    "Odd",
	FieldStake:  "Stake",
	FieldSport:  "Esporte",
	FieldDate:   "Data",
}

func (f Field) Valid() bool {
	_, ok := labels[f]
	return ok
}

// Label is the user-facing name.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Get renders the current value of f for prompts.
func (r Record) Get(f Field) string {
	switch f {
	case FieldBook:
		return r.Book
	case FieldEvent:
		return r.Event
	case FieldMarket:
		return r.Market
	case FieldOdd:
		if r.Odd.Valid {
			return r.Odd.Decimal.String()
		}
	case FieldStake:
		if r.Stake.Valid {
			return r.Stake.Decimal.StringFixed(2)
		}
	case FieldSport:
		return r.Sport
	case FieldDate:
		return r.MatchDate
	}
	return ""
}

// Set replaces f with the coerced form of raw. "-" clears the field; money
// input that does not parse also leaves the field empty.
func (r *Record) Set(f Field, raw string, today time.Time) {
	v := strings.TrimSpace(raw)
	clear := v == ClearValue
	if clear {
		v = ""
	}
	switch f {
	case FieldBook:
		r.Book = coerce.Slugify(v)
	case FieldEvent:
		r.Event = v
	case FieldMarket:
		r.Market = v
	case FieldOdd:
		r.Odd = money(v)
	case FieldStake:
		r.Stake = money(v)
	case FieldSport:
		r.Sport = v
	case FieldDate:
		r.MatchDate = coerce.ParseDate(v, today)
	}
}

func money(v string) decimal.NullDecimal {
	d, ok := coerce.ParseMoney(v)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
