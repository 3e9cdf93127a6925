package domain

import (
	"strconv"
	"strings"
	"time"
)

// KoboPerNaira converts between the dialogue unit (naira) and the payments
// API unit (kobo).
const KoboPerNaira = 100

func ToKobo(naira int64) int64 { return naira * KoboPerNaira }

// FromKobo truncates to whole naira.
func FromKobo(kobo int64) int64 { return kobo / KoboPerNaira }

// FormatNaira renders whole naira as "₦5,000.00".
func FormatNaira(naira int64) string {
	return FormatKobo(ToKobo(naira))
}

// FormatKobo renders a kobo amount as "₦1,234.56".
func FormatKobo(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign = "-"
		kobo = -kobo
	}
	whole := strconv.FormatInt(kobo/KoboPerNaira, 10)
	frac := kobo % KoboPerNaira

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("₦")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

// Balance is one currency balance as reported by the payments API.
type Balance struct {
	Currency    string `json:"currency"`
	AmountMinor int64  `json:"balance"`
}

// AccountInfo is the result of resolving an account number at a bank.
type AccountInfo struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}

// Bank is an entry of the payments provider bank list.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Transfer is an outgoing transfer as recorded locally or listed by the
// payments API.
type Transfer struct {
	Reference     string    `json:"reference"`
	AmountMinor   int64     `json:"amount"`
	RecipientName string    `json:"recipient_name"`
	AccountNumber string    `json:"account_number,omitempty"`
	BankCode      string    `json:"bank_code,omitempty"`
	BankName      string    `json:"bank_name,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransferResult is the payments API response to InitiateTransfer.
type TransferResult struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code,omitempty"`
}
