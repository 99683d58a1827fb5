package slip

import (
	"regexp"
	"strings"
	"time"

	"slip-bot/api/internal/coerce"
)

// Patch is a partial record update parsed from "key: value" lines.
// Values are raw user input; Apply coerces them per field.
type Patch map[Field]string

var patchLine = regexp.MustCompile(`^\s*([^:=]+?)\s*[:=]\s*(.*?)\s*$`)

var patchKeys = map[string]Field{
	"casa":    FieldBook,
	"book":    FieldBook,
	"evento":  FieldEvent,
	"jogo":    FieldEvent,
	"event":   FieldEvent,
	"mercado": FieldMarket,
	"market":  FieldMarket,
	"odd":     FieldOdd,
	"odds":    FieldOdd,
	"stake":   FieldStake,
	"valor":   FieldStake,
	"aposta":  FieldStake,
	"esporte": FieldSport,
	"sport":   FieldSport,
	"data":    FieldDate,
	"date":    FieldDate,
}

// ParsePatch reads one "key: value" (or "key = value") pair per line. Keys are
// matched case- and accent-insensitively. Lines with an unknown key, no
// separator or an empty value are returned in rejected, in input order.
// A later line for the same key wins.
func ParsePatch(text string) (p Patch, rejected []string) {
	p = Patch{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := patchLine.FindStringSubmatch(line)
		if m == nil || m[2] == "" {
			rejected = append(rejected, strings.TrimSpace(line))
			continue
		}
		f, ok := patchKeys[coerce.Slugify(m[1])]
		if !ok {
			rejected = append(rejected, strings.TrimSpace(line))
			continue
		}
		p[f] = m[2]
	}
	return p, rejected
}

// Apply sets every field of the patch on r.
func (p Patch) Apply(r *Record, today time.Time) {
	for _, f := range Fields {
		if v, ok := p[f]; ok {
			r.Set(f, v, today)
		}
	}
}
