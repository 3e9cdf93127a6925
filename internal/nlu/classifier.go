package nlu

import (
	"regexp"
	"strings"

	"chatbank-agent/internal/domain"
)

const maxTransferAmount = 10_000_000

var (
	// historyHints route an otherwise unmatched follow-up like "for last
	// month" to history.
	historyHints = map[string]bool{
		"this": true, "for": true, "last": true, "week": true, "month": true,
		"year": true, "today": true, "yesterday": true, "day": true, "time": true,
	}
	chatVocabularyRe = regexp.MustCompile(`talk|normal|conversation`)

	transferAmountRes = []struct {
		re     *regexp.Regexp
		suffix bool
	}{
		{regexp.MustCompile(`\b(?:send|transfer|pay)\s+₦?(\d+(?:\.\d+)?)\s*([km])?\b`), true},
		{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([km])\b`), true},
		{regexp.MustCompile(`₦(\d+(?:\.\d+)?)\s*([km])?\b`), true},
		{regexp.MustCompile(`\b(\d{3,7})\b`), false},
	}
)

// Classifier assigns exactly one intent to a message. It is stateless and
// safe for concurrent use.
type Classifier struct {
	rules    []rule
	priority []domain.Intent
}

func NewClassifier() *Classifier {
	return &Classifier{rules: rules, priority: priority}
}

// Parse extracts entities and classifies text in one call.
func (c *Classifier) Parse(text string) (domain.Intent, domain.Entities) {
	return c.Classify(text, Extract(text))
}

// Classify picks the intent of text. For account+bank+amount messages the
// entities are re-read with patterns that know the message shape, so the
// returned set may differ from the one passed in.
func (c *Classifier) Classify(text string, e domain.Entities) (domain.Intent, domain.Entities) {
	lower := strings.ToLower(strings.TrimSpace(text))
	matched := c.matchAll(lower)

	for _, intent := range c.priority {
		if !matched[intent] {
			continue
		}
		switch intent {
		case domain.IntentDenial:
			// "no wahala, let's talk" is small talk, not a refusal.
			if matched[domain.IntentConversation] {
				return domain.IntentConversation, e
			}
		case domain.IntentTransfer:
			if matched[domain.IntentDenial] || matched[domain.IntentConversation] {
				return domain.IntentConversation, e
			}
		case domain.IntentConfirmation:
			if chatVocabularyRe.MatchString(lower) {
				return domain.IntentConversation, e
			}
		case domain.IntentAccountBankAmountTransfer:
			return intent, reextractTransfer(lower, e)
		}
		return intent, e
	}

	for _, w := range strings.Fields(lower) {
		if historyHints[w] {
			return domain.IntentHistory, e
		}
	}
	return domain.IntentConversation, e
}

// Matches returns every intent whose rule matched, in table order. It is
// meant for debugging classifier decisions.
func (c *Classifier) Matches(text string) []domain.Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	matched := c.matchAll(lower)
	var out []domain.Intent
	for _, r := range c.rules {
		if matched[r.intent] {
			out = append(out, r.intent)
		}
	}
	return out
}

func (c *Classifier) matchAll(lower string) map[domain.Intent]bool {
	matched := make(map[domain.Intent]bool)
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if p.match(lower) {
				matched[r.intent] = true
				break
			}
		}
	}
	return matched
}

func reextractTransfer(lower string, e domain.Entities) domain.Entities {
	if m := accountRe.FindStringSubmatch(lower); m != nil {
		e.AccountNumber = m[1]
	}
	if alias, code, ok := FindBank(lower); ok {
		e.BankName = alias
		e.BankCode = code
	}
	if amount := transferAmount(lower, e.AccountNumber); amount > 0 {
		e.Amount = amount
	}
	return e
}

// transferAmount picks the first amount candidate that is not a piece of
// account. Plain digit groups inside a spaced account number ("818 164
// 8623") are skipped; a k/m suffix or a naira sign marks a real amount.
func transferAmount(lower, account string) int64 {
	for _, p := range transferAmountRes {
		for _, m := range p.re.FindAllStringSubmatch(lower, -1) {
			if len(m[1]) >= accountDigits {
				continue
			}
			mult := 1.0
			if p.suffix {
				mult = suffixMultiplier(m[2])
			}
			plain := mult == 1 && !strings.Contains(m[0], "₦")
			if plain && account != "" && strings.Contains(account, m[1]) {
				continue
			}
			v, ok := scale(m[1], mult)
			if !ok || v > maxTransferAmount {
				continue
			}
			return v
		}
	}
	return 0
}
