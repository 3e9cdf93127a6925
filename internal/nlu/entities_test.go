package nlu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chatbank-agent/internal/domain"
)

func TestExtract_AmountNormalization(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"send 5k", 5000},
		{"send 2.5m to mum", 2_500_000},
		{"₦1,500.00", 1500},
		{"transfer 1190 naira", 1190},
		{"pay 5 thousand", 5000},
		{"700", 0},
		{"add 0123456789 access as beneficiary send 5k", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Extract(tc.text).Amount, "text=%q", tc.text)
	}
}

func TestExtract_AccountSegmentation(t *testing.T) {
	require.Equal(t, "8181648623", Extract("818 164 8623").AccountNumber)
	require.Equal(t, "8181648623", Extract("8181648623").AccountNumber)
	require.Equal(t, "8181648623", Extract("opay 81816 48623").AccountNumber)
	require.Empty(t, Extract("call me on 0803 123").AccountNumber)
}

func TestExtract_SpacedAccountIsNotAnAmount(t *testing.T) {
	e := Extract("send money to 818 164 8623")
	require.Equal(t, "8181648623", e.AccountNumber)
	require.Zero(t, e.Amount)
}

func TestExtract_FullTransfer(t *testing.T) {
	got := Extract("send 5k to 0123456789 gtbank")
	require.Equal(t, domain.Entities{
		Amount:        5000,
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "gtbank",
	}, got)
}

func TestExtract_GenericBankWord(t *testing.T) {
	e := Extract("what bank is this")
	require.Equal(t, "bank", e.BankName)
	require.Empty(t, e.BankCode)
}

func TestFindBank_ShortAliasNeedsWordBoundary(t *testing.T) {
	_, _, ok := FindBank("the length is fine")
	require.False(t, ok)

	alias, code, ok := FindBank("what is the gt bank code")
	require.True(t, ok)
	require.Equal(t, "gt bank", alias)
	require.Equal(t, "058", code)
}

func TestResolveBankCode(t *testing.T) {
	code, ok := ResolveBankCode("Kuda")
	require.True(t, ok)
	require.Equal(t, "50211", code)

	code, ok = ResolveBankCode("Moniepoint MFB")
	require.True(t, ok)
	require.Equal(t, "50515", code)

	code, ok = ResolveBankCode("my zenith account")
	require.True(t, ok)
	require.Equal(t, "057", code)

	_, ok = ResolveBankCode("xyz")
	require.False(t, ok)

	require.Equal(t, "GTBank", BankDisplayName("058"))
	require.Equal(t, "999", BankDisplayName("999"))
}

func TestExtractRecipientName(t *testing.T) {
	require.Equal(t, "Babe", ExtractRecipientName("Send 5k to my Babe"))
	require.Equal(t, "babe", ExtractRecipientName("send 5k to my babe please"))
	require.Equal(t, "Tunde", ExtractRecipientName("send money to Tunde"))
	require.Empty(t, ExtractRecipientName("send 5k to 0123456789 gtbank"))
	require.Empty(t, ExtractRecipientName("send money to him"))
}

func TestExtractNickname(t *testing.T) {
	n, ok := ExtractNickname("remember yinka is my igbo plug")
	require.True(t, ok)
	require.Equal(t, Nickname{RecipientName: "yinka", Nickname: "igbo plug"}, n)

	n, ok = ExtractNickname("Save Tunde as my Barber.")
	require.True(t, ok)
	require.Equal(t, Nickname{RecipientName: "Tunde", Nickname: "barber"}, n)

	n, ok = ExtractNickname("yinka is my plug so send him 5k")
	require.True(t, ok)
	require.Equal(t, "plug", n.Nickname)

	_, ok = ExtractNickname("tobi is my friend")
	require.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"5k", 5000},
		{"2.5m", 2_500_000},
		{"₦1,500", 1500},
		{"ngn 2000", 2000},
		{"abc", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseAmount(tc.text), "text=%q", tc.text)
	}
}
