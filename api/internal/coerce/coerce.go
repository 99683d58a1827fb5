// Package coerce normalizes the loosely typed values that arrive from slip
// extraction and from users typing corrections into the chat.
package coerce

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the canonical match date form.
const DateLayout = "2006-01-02"

// ParseMoney reads a non-negative amount such as "25,50", "R$ 10" or "1.85".
// A comma is treated as the decimal separator.
func ParseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Decimal{}, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return decimal.Decimal{}, false
		}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Slugify collapses provider names to a stable key: "Betano", "betano " and
// "BÉTANO" all become "betano"; "Sport & Bet" becomes "sportebet".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(strings.ToLower(out), "&", "e")

	var b strings.Builder
	for _, r := range out {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	reISO = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reDMY = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})(?:[/.\-](\d{2}|\d{4}))?$`)
)

// ParseDate returns YYYY-MM-DD for ISO or D/M[/YY[YY]] input. Input that
// cannot be read as a calendar date is returned trimmed but otherwise as is,
// so the review screen can show it for correction. Empty input yields "".
func ParseDate(s string, today time.Time) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}
	var y, m, d int
	if g := reISO.FindStringSubmatch(raw); g != nil {
		y, m, d = atoi(g[1]), atoi(g[2]), atoi(g[3])
	} else if g := reDMY.FindStringSubmatch(raw); g != nil {
		d, m = atoi(g[1]), atoi(g[2])
		switch len(g[3]) {
		case 0:
			y = today.Year()
		case 2:
			y = 2000 + atoi(g[3])
		default:
			y = atoi(g[3])
		}
	} else {
		return raw
	}
	if !validDate(y, m, d) {
		return raw
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// DefaultDate returns date, or today's canonical date when date is empty.
func DefaultDate(date string, today time.Time) string {
	if strings.TrimSpace(date) != "" {
		return date
	}
	return today.Format(DateLayout)
}

// IsCanonicalDate reports whether s is already in YYYY-MM-DD form.
func IsCanonicalDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
