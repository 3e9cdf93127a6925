package nlu

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minBareAmount     = 10
	maxBareAmount     = 10_000_000
	maxFollowUpAmount = 1_000_000
	// A bare number this long next to an account number is more likely part
	// of another account than an amount.
	bareDigitsWithAccount = 6
)

// number matches "5", "2.5" and "1,500.00".
const number = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

type amountPattern struct {
	re *regexp.Regexp
	// multiplier applies when the pattern has no suffix group.
	multiplier float64
	bare       bool
}

var (
	moneyContextRe       = regexp.MustCompile(`send|transfer|pay|money|naira|thousand|million|₦|\d(?:\.\d+)?\s*[km]\b`)
	beneficiaryContextRe = regexp.MustCompile(`\b(?:add|save|saved|beneficiary|beneficiaries|contact|contacts|recipient|recipients)\b`)

	amountPatterns = []amountPattern{
		{re: regexp.MustCompile(`\b(?:send|transfer|pay)\s+₦?\s*` + number + `\s*(k|m|thousand|million)?\b`), multiplier: 1},
		{re: regexp.MustCompile(`\b` + number + `\s*(?:m|million)\b`), multiplier: 1_000_000},
		{re: regexp.MustCompile(`\b` + number + `\s*(?:k|thousand)\b`), multiplier: 1_000},
		{re: regexp.MustCompile(`\b` + number + `\s*(?:naira|₦)`), multiplier: 1},
		{re: regexp.MustCompile(`₦\s*` + number), multiplier: 1},
		{re: regexp.MustCompile(`\b(\d{1,7})\b`), multiplier: 1, bare: true},
	}

	followUpMillionRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m\b`)
	followUpThousandRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*k\b`)
	followUpCurrencyRe = regexp.MustCompile(`(?:₦|ngn)?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	followUpBareRe     = regexp.MustCompile(`\b(\d{1,7})\b`)
)

// extractAmount finds a naira amount in a lower-cased message. It only looks
// when the message talks about money and is not about saving a contact.
func extractAmount(lower, account string) int64 {
	if !moneyContextRe.MatchString(lower) || beneficiaryContextRe.MatchString(lower) {
		return 0
	}
	for _, p := range amountPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		digits := strings.ReplaceAll(m[1], ",", "")
		whole, _, _ := strings.Cut(digits, ".")
		if account != "" && whole == account {
			continue
		}
		mult := p.multiplier
		if len(m) > 2 && m[2] != "" {
			mult = suffixMultiplier(m[2])
		}
		amount, ok := scale(digits, mult)
		if !ok {
			continue
		}
		if p.bare {
			if account != "" && (strings.Contains(account, whole) || len(whole) >= bareDigitsWithAccount) {
				continue
			}
			if amount < minBareAmount || amount > maxBareAmount {
				continue
			}
		}
		return amount
	}
	return 0
}

// ParseAmount reads the reply to "how much should I send?". It is more
// permissive than Extract since the question already set the money context.
func ParseAmount(text string) int64 {
	lower := strings.ToLower(strings.TrimSpace(text))
	if m := followUpMillionRe.FindStringSubmatch(lower); m != nil {
		if v, ok := scale(m[1], 1_000_000); ok {
			return v
		}
	}
	if m := followUpThousandRe.FindStringSubmatch(lower); m != nil {
		if v, ok := scale(m[1], 1_000); ok {
			return v
		}
	}
	if m := followUpCurrencyRe.FindStringSubmatch(lower); m != nil {
		if v, ok := scale(strings.ReplaceAll(m[1], ",", ""), 1); ok {
			return v
		}
	}
	for _, m := range followUpBareRe.FindAllStringSubmatch(lower, -1) {
		v, ok := scale(m[1], 1)
		if ok && v >= minBareAmount && v <= maxFollowUpAmount {
			return v
		}
	}
	return 0
}

func suffixMultiplier(s string) float64 {
	switch s {
	case "k", "thousand":
		return 1_000
	case "m", "million":
		return 1_000_000
	}
	return 1
}

// scale converts a decimal string to whole naira. Fractions of a naira are
// dropped.
func scale(digits string, mult float64) (int64, bool) {
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	v := int64(math.Floor(f*mult + 1e-6))
	if v <= 0 {
		return 0, false
	}
	return v, true
}
