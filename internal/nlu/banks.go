package nlu

import (
	"regexp"
	"strings"
)

type bankAlias struct {
	alias string
	code  string
}

// bankAliases is searched in order; the first alias found in a message wins,
// so longer spellings of the same bank come before their short forms.
var bankAliases = []bankAlias{
	{"gtbank", "058"}, {"gtb", "058"}, {"guarantee trust", "058"}, {"gt bank", "058"},
	{"gt", "058"}, {"guaranty trust", "058"}, {"guaranty", "058"},
	{"access", "044"}, {"access bank", "044"}, {"access bank plc", "044"},
	{"first bank", "011"}, {"firstbank", "011"}, {"first", "011"}, {"fbn", "011"},
	{"zenith", "057"}, {"zenith bank", "057"}, {"zenith bank plc", "057"},
	{"uba", "033"}, {"united bank", "033"}, {"united bank for africa", "033"},
	{"fidelity", "070"},
	{"sterling", "232"},
	{"union", "032"},
	{"wema", "035"},
	{"fcmb", "214"}, {"fcmb bank", "214"}, {"first city", "214"},
	{"first city monument bank", "214"}, {"fcmb group", "214"},
	{"ecobank", "050"}, {"ecobank nigeria", "050"}, {"eco bank", "050"},
	{"keystone", "082"},
	{"stanbic", "221"}, {"stanbic ibtc", "221"}, {"stanbic ibtc bank", "221"},
	{"heritage", "030"},
	{"unity", "215"},
	{"providus", "101"},
	{"suntrust", "100"},
	{"polaris", "076"},
	{"kuda", "50211"}, {"kuda bank", "50211"}, {"kuda microfinance bank", "50211"}, {"kooda", "50211"},
	{"opay", "999992"}, {"o-pay", "999992"}, {"opal", "999992"}, {"opera", "999992"},
	{"opay bank", "999992"}, {"o pay", "999992"},
	{"moniepoint", "50515"}, {"monie point", "50515"}, {"money point", "50515"},
	{"moneypoint", "50515"}, {"moniepoint mfb", "50515"},
	{"moniepoint microfinance bank", "50515"}, {"monie", "50515"}, {"mp", "50515"},
	{"palmpay", "999991"}, {"palm pay", "999991"}, {"palm-pay", "999991"},
	{"palmpay bank", "999991"}, {"palm", "999991"},
	{"carbon", "565"}, {"carbon bank", "565"}, {"carbon micro", "565"},
	{"rubies", "125"},
	{"vfd", "566"},
	{"mint", "50304"}, {"mint bank", "50304"}, {"fintech mint", "50304"},
	{"globus", "103"},
	{"parallex", "104"},
	{"coronation", "559"},
	{"citi", "023"}, {"citibank", "023"}, {"citi bank", "023"},
	{"standard chartered", "068"}, {"standard", "068"}, {"scb", "068"},
}

var bankNames = map[string]string{
	"044":    "Access Bank",
	"058":    "GTBank",
	"011":    "First Bank",
	"057":    "Zenith Bank",
	"033":    "UBA",
	"070":    "Fidelity Bank",
	"232":    "Sterling Bank",
	"032":    "Union Bank",
	"035":    "Wema Bank",
	"214":    "FCMB",
	"50211":  "Kuda Bank",
	"999992": "OPay",
	"999991": "PalmPay",
	"50515":  "Moniepoint",
	"565":    "Carbon",
	"101":    "Providus Bank",
	"082":    "Keystone Bank",
	"076":    "Polaris Bank",
	"050":    "Ecobank",
	"221":    "Stanbic IBTC",
	"030":    "Heritage Bank",
	"215":    "Unity Bank",
	"100":    "Suntrust Bank",
	"125":    "Rubies Bank",
	"566":    "VFD Bank",
	"50304":  "Mint Bank",
	"103":    "Globus Bank",
	"104":    "Parallex Bank",
	"559":    "Coronation Bank",
	"023":    "Citibank",
	"068":    "Standard Chartered",
}

// shortAliasMax is the longest alias that must stand alone as a word; "gt" or
// "mp" inside another word is not a bank.
const shortAliasMax = 3

var (
	shortAliasRe  = compileShortAliases()
	genericBankRe = regexp.MustCompile(`\b(bank|gtb|access|first|zenith|uba|fidelity|sterling|union|wema|fcmb|kuda|opay|palmpay|moniepoint|carbon|providus|keystone|polaris)\b`)
)

func compileShortAliases() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, a := range bankAliases {
		if len(a.alias) <= shortAliasMax {
			out[a.alias] = regexp.MustCompile(`\b` + regexp.QuoteMeta(a.alias) + `\b`)
		}
	}
	return out
}

func aliasIn(lower string, a bankAlias) bool {
	if re, ok := shortAliasRe[a.alias]; ok {
		return re.MatchString(lower)
	}
	return strings.Contains(lower, a.alias)
}

// FindBank returns the first alias of the table that occurs in text, with its
// bank code.
func FindBank(text string) (alias, code string, ok bool) {
	lower := strings.ToLower(text)
	for _, a := range bankAliases {
		if aliasIn(lower, a) {
			return a.alias, a.code, true
		}
	}
	return "", "", false
}

// ResolveBankCode maps a bank name as the user typed it to a code: exact alias
// first, then an alias contained in the name or the name contained in an
// alias.
func ResolveBankCode(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, a := range bankAliases {
		if a.alias == n {
			return a.code, true
		}
	}
	for _, a := range bankAliases {
		if aliasIn(n, a) || (len(n) > shortAliasMax && strings.Contains(a.alias, n)) {
			return a.code, true
		}
	}
	return "", false
}

// BankDisplayName returns the human name of a bank code, or the code itself
// when it is not in the table.
func BankDisplayName(code string) string {
	if name, ok := bankNames[code]; ok {
		return name
	}
	return code
}
