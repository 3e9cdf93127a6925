package domain

import "strings"

// RecipientSource tags where a recipient record came from.
type RecipientSource string

const (
	SourceLocal    RecipientSource = "local"
	SourceExternal RecipientSource = "external"
)

// Recipient is a payee known to a user. Two records describe the same payee
// when their Key values are equal.
type Recipient struct {
	AccountName   string          `json:"account_name"`
	AccountNumber string          `json:"account_number"`
	BankCode      string          `json:"bank_code"`
	BankName      string          `json:"bank_name,omitempty"`
	RecipientCode string          `json:"recipient_code,omitempty"`
	Source        RecipientSource `json:"source"`
	Nicknames     []string        `json:"nicknames,omitempty"`
}

// RecipientKey is the uniqueness key of a recipient.
type RecipientKey struct {
	AccountNumber string
	BankCode      string
}

func (r Recipient) Key() RecipientKey {
	return RecipientKey{AccountNumber: r.AccountNumber, BankCode: r.BankCode}
}

// FirstName returns the first word of the account name, used in reply hints.
func (r Recipient) FirstName() string {
	fields := strings.Fields(r.AccountName)
	if len(fields) == 0 {
		return r.AccountName
	}
	return fields[0]
}
