package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var today = time.Date(2024, 7, 1, 15, 4, 0, 0, time.UTC)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"25,50", "25.50", true},
		{"10", "10", true},
		{"1.85", "1.85", true},
		{" R$ 100,00 ", "100", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"-5", "", false},
		{"1,2,3", "", false},
		{"NaN", "", false},
		{"Inf", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseMoney(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "betano", Slugify("Betano"))
	assert.Equal(t, "betano", Slugify("  BÉTANO "))
	assert.Equal(t, "estrelabet", Slugify("Estrela Bet"))
	assert.Equal(t, "sportebet", Slugify("Sport & Bet"))
	assert.Equal(t, "bet365", Slugify("bet-365"))
	assert.Equal(t, "acaoesportiva", Slugify("Ação Esportiva!"))
	assert.Equal(t, "", Slugify("***"))
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-05":  "2024-03-05",
		"2024-3-5":    "2024-03-05",
		"05/03/2024":  "2024-03-05",
		"5/3/24":      "2024-03-05",
		"05.03.2024":  "2024-03-05",
		"5-3":         "2024-03-05",
		"31/02/2024":  "31/02/2024",
		"amanhã":      "amanhã",
		"  ontem  ":   "ontem",
		"2024-13-01":  "2024-13-01",
		"":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseDate(in, today), "input %q", in)
	}
}

func TestDefaultDate(t *testing.T) {
	assert.Equal(t, "2024-07-01", DefaultDate("", today))
	assert.Equal(t, "2024-07-01", DefaultDate("   ", today))
	assert.Equal(t, "amanhã", DefaultDate("amanhã", today), "malformed dates are kept, not defaulted")
}

func TestIsCanonicalDate(t *testing.T) {
	assert.True(t, IsCanonicalDate("2024-03-05"))
	assert.False(t, IsCanonicalDate("05/03/2024"))
}
