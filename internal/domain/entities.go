package domain

// Entities holds the typed values pulled out of a message. Every field is
// optional; Amount is in whole naira and zero means absent.
type Entities struct {
	Amount        int64  `json:"amount,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
}

func (e Entities) HasAmount() bool  { return e.Amount > 0 }
func (e Entities) HasAccount() bool { return e.AccountNumber != "" }
func (e Entities) HasBank() bool    { return e.BankCode != "" || e.BankName != "" }

// Empty reports whether nothing was extracted.
func (e Entities) Empty() bool {
	return e == Entities{}
}
