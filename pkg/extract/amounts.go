package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/civicledger/budgetmap/internal/matcher"
)

var currency = matcher.MustNew(matcher.Regex, `^\(?\$?\s*-?[\d,]*\d(?:\.\d+)?\)?$`)

// ParseAmount parses a currency cell: "$1,234", "(1,234)" for negatives and
// "-" for zero.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "-", "$-", "--", "–", "—":
		return decimal.Zero, true
	}
	if !currency.Match(s) {
		return decimal.Decimal{}, false
	}
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if strings.HasPrefix(s, "(") != strings.HasSuffix(s, ")") {
		return decimal.Decimal{}, false
	}
	clean := strings.NewReplacer("(", "", ")", "", "$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// splitAmounts separates trailing currency fields from the leading text of a
// token: "0001 General Fund $100 $200" -> "0001 General Fund", [100 200].
func splitAmounts(text string) (string, []decimal.Decimal) {
	fields := strings.Fields(text)
	i := len(fields)
	var amounts []decimal.Decimal
	for i > 0 {
		d, ok := ParseAmount(fields[i-1])
		if !ok {
			break
		}
		amounts = append([]decimal.Decimal{d}, amounts...)
		i--
	}
	return strings.Join(fields[:i], " "), amounts
}
