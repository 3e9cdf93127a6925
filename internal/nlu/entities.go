package nlu

import (
	"regexp"
	"strings"

	"chatbank-agent/internal/domain"
)

const accountDigits = 10

var (
	accountRe = regexp.MustCompile(`\b(\d{10})\b`)

	// Spoken account numbers are often grouped; the groups are joined and
	// kept only when they add up to ten digits.
	segmentedAccountRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{3})\s+(\d{3})\s+(\d{4})\b`),
		regexp.MustCompile(`\b(\d{4})\s+(\d{3})\s+(\d{3})\b`),
		regexp.MustCompile(`\b(\d{2})\s+(\d{4})\s+(\d{4})\b`),
		regexp.MustCompile(`\b(\d{5})\s+(\d{5})\b`),
	}
)

// Extract pulls account number, bank, amount and recipient name out of a
// message. Fields that are not found stay zero.
func Extract(text string) domain.Entities {
	var e domain.Entities
	lower := strings.ToLower(strings.TrimSpace(text))

	e.AccountNumber = ExtractAccountNumber(lower)

	if alias, code, ok := FindBank(lower); ok {
		e.BankName = alias
		e.BankCode = code
	} else if m := genericBankRe.FindStringSubmatch(lower); m != nil {
		e.BankName = m[1]
	}

	e.Amount = extractAmount(lower, e.AccountNumber)
	e.RecipientName = ExtractRecipientName(text)
	return e
}

// ExtractAccountNumber returns the first ten-digit account number in text,
// contiguous or grouped, or "".
func ExtractAccountNumber(text string) string {
	if m := accountRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, re := range segmentedAccountRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		joined := strings.Join(m[1:], "")
		if len(joined) == accountDigits {
			return joined
		}
	}
	return ""
}
