package nlu

import (
	"regexp"
	"strings"
)

const (
	words    = `([a-z]+(?:\s+[a-z]+)*)`
	oneOrTwo = `([a-z]+(?:\s+[a-z]+)?)`
)

var (
	recipientNameRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:to|for|send(?:\s+money)?\s+to)\s+my\s+` + words),
		regexp.MustCompile(`(?i)\bgive\s+my\s+` + words),
		regexp.MustCompile(`(?i)\bpay\s+my\s+` + words),
		regexp.MustCompile(`(?i)\btransfer.*\bto\s+my\s+` + words),
		regexp.MustCompile(`(?i)\b(?:to|for|send(?:\s+money)?\s+to)\s+` + oneOrTwo + `(?:\s+at\b|\s+\d|$)`),
		regexp.MustCompile(`(?i)\bgive\s+` + oneOrTwo + `\s+`),
		regexp.MustCompile(`(?i)\bpay\s+` + oneOrTwo + `\s+`),
		regexp.MustCompile(`(?i)\btransfer.*\bto\s+` + oneOrTwo + `\s*$`),
	}

	nameStopWords = map[string]bool{
		"money": true, "cash": true, "naira": true, "the": true, "this": true,
		"that": true, "some": true, "him": true, "her": true, "them": true,
		"me": true, "you": true,
	}

	// Trailing filler that belongs to the sentence, not the name.
	nameFiller = map[string]bool{"please": true, "now": true, "abeg": true, "sharp": true, "o": true}

	nicknameRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^please\s+remember\s+` + oneOrTwo + `\s+is\s+my\s+` + words + `$`),
		regexp.MustCompile(`(?i)^remember\s+` + oneOrTwo + `\s+is\s+my\s+` + words + `$`),
		regexp.MustCompile(`(?i)^save\s+` + oneOrTwo + `\s+as\s+my\s+` + words + `$`),
		regexp.MustCompile(`(?i)^call\s+` + oneOrTwo + `\s+my\s+` + words + `$`),
		regexp.MustCompile(`(?i)^` + oneOrTwo + `\s+is\s+my\s+` + words + `$`),
		regexp.MustCompile(`(?i)\b(?:please\s+)?(?:remember\s+)?` + oneOrTwo + `\s+is\s+my\s+([a-z]+(?:\s+[a-z]+)*?)(?:\s+(?:so|and|but|please|now)\b|$)`),
	}

	genericNicknames = map[string]bool{"person": true, "friend": true, "contact": true}
)

// ExtractRecipientName returns the payee named in a transfer request, with the
// casing the user typed, or "".
func ExtractRecipientName(text string) string {
	text = strings.TrimSpace(text)
	for _, re := range recipientNameRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := trimFiller(m[1])
		if len(name) < 2 || nameStopWords[strings.ToLower(name)] {
			continue
		}
		return name
	}
	return ""
}

func trimFiller(name string) string {
	fields := strings.Fields(name)
	for len(fields) > 1 && nameFiller[strings.ToLower(fields[len(fields)-1])] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// Nickname is a "X is my Y" mapping from a message.
type Nickname struct {
	RecipientName string
	Nickname      string
}

// ExtractNickname recognises "remember X is my Y", "save X as my Y",
// "call X my Y" and "X is my Y". The nickname is lower-cased; generic words
// like "friend" are not accepted as nicknames.
func ExtractNickname(text string) (Nickname, bool) {
	text = strings.TrimRight(strings.TrimSpace(text), ".!?")
	for _, re := range nicknameRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		nick := strings.ToLower(strings.Join(strings.Fields(m[2]), " "))
		if genericNicknames[nick] || len(name) < 2 {
			continue
		}
		return Nickname{RecipientName: name, Nickname: nick}, true
	}
	return Nickname{}, false
}
