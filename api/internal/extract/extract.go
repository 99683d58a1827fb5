// Package extract turns a photographed bet slip into a candidate record.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"slip-bot/api/internal/coerce"
	"slip-bot/api/internal/slip"
)

// ErrNotAuthorized means the user has to link their account before any
// slip can be processed.
var ErrNotAuthorized = errors.New("extract: not authorized")

type Image struct {
	Data     []byte
	MIME     string
	BookHint string
	Caption  string
	OwnerID  string
}

type Extractor interface {
	Extract(ctx context.Context, img Image) (slip.Record, error)
}

// wireRecord is the loose shape both the extraction service and the LLM
// return: numbers may arrive as JSON numbers or as "1,85"-style strings.
type wireRecord struct {
	Book       string   `json:"book"`
	Event      string   `json:"event"`
	Market     string   `json:"market"`
	Odd        any      `json:"odd"`
	Stake      any      `json:"stake"`
	Sport      string   `json:"sport"`
	MatchDate  string   `json:"match_date"`
	Date       string   `json:"date"`
	Confidence *float64 `json:"confidence"`
}

func (w wireRecord) record() slip.Record {
	r := slip.Record{
		Book:       w.Book,
		Event:      w.Event,
		Market:     w.Market,
		Odd:        looseMoney(w.Odd),
		Stake:      looseMoney(w.Stake),
		Sport:      w.Sport,
		MatchDate:  w.MatchDate,
		Confidence: w.Confidence,
	}
	if r.MatchDate == "" {
		r.MatchDate = w.Date
	}
	return r
}

func looseMoney(v any) decimal.NullDecimal {
	var s string
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		s = x
	default:
		s = strings.TrimSpace(fmt.Sprint(x))
	}
	d, ok := coerce.ParseMoney(s)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
