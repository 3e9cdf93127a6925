package nlu

import (
	"regexp"

	"chatbank-agent/internal/domain"
)

// matcher is one pattern of a rule.
type matcher interface {
	match(text string) bool
}

type pattern struct {
	re *regexp.Regexp
	// guard, when set, gets the submatch indexes and may veto the match.
	guard func(text string, loc []int) bool
}

func (p pattern) match(text string) bool {
	loc := p.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return false
	}
	return p.guard == nil || p.guard(text, loc)
}

type rule struct {
	intent   domain.Intent
	patterns []matcher
}

func anyOf(exprs ...string) []matcher {
	out := make([]matcher, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, pattern{re: regexp.MustCompile(e)})
	}
	return out
}

func guarded(expr string, guard func(string, []int) bool) matcher {
	return pattern{re: regexp.MustCompile(expr), guard: guard}
}

// unlessFollowedBy vetoes a match when the text after it matches tail.
func unlessFollowedBy(tail string) func(string, []int) bool {
	tailRe := regexp.MustCompile(tail)
	return func(text string, loc []int) bool {
		return !tailRe.MatchString(text[loc[1]:])
	}
}

var (
	payeeBankWordRe = regexp.MustCompile(`\b(?:opay|kuda|access|gtb|gtbank|zenith|uba|first|bank)\b`)
	payeeTailRe     = regexp.MustCompile(`^\s*(?:\d{10}|\d{3}\s+\d{3}\s+\d{4})|^\s+(?:opay|kuda|access|gtb|gtbank|zenith|uba|first|bank)\b`)
)

// namedPayee accepts a beneficiary transfer only when the captured name is a
// person and no account details follow it.
func namedPayee(text string, loc []int) bool {
	name := text[loc[2]:loc[3]]
	if payeeBankWordRe.MatchString(name) {
		return false
	}
	return !payeeTailRe.MatchString(text[loc[1]:])
}

const (
	acct      = `(?:\d{3}\s+\d{3}\s+\d{4}|\d{10})`
	verb      = `(?:send|transfer|pay)`
	amt       = `₦?\d+(?:\.\d+)?[km]?`
	plainAmt  = `\d+[km]?`
	personRun = `[a-z]+(?:\s+[a-z]+)*`
)

// rules is the classifier table. Every rule is evaluated; the winner is
// chosen by priority, not by position in this list.
var rules = []rule{
	{domain.IntentBalance, []matcher{
		pattern{re: regexp.MustCompile(`balance`)},
		guarded(`how much.*have`, unlessFollowedBy(`sent`)),
		guarded(`my money`, unlessFollowedBy(`sent`)),
		pattern{re: regexp.MustCompile(`wetin dey my account`)},
		pattern{re: regexp.MustCompile(`how much money`)},
	}},
	{domain.IntentTransfer, anyOf(
		`transfer.*to`, `send.*to`, `pay.*to`, `payment.*to`,
		`\d+k?\s+to`, `send \d+`, `give.*money`,
	)},
	{domain.IntentAccountResolve, anyOf(
		`\d{10}\s+\w+`, `resolve`, `check account`, `account.*bank`,
	)},
	{domain.IntentAccountBankAmountTransfer, anyOf(
		`\b`+acct+`\s+\w+\s+`+verb+`\s+`+amt+`\b`,
		`\b\w+\s+`+acct+`\s+`+verb+`\s+`+amt+`\b`,
		`\b`+acct+`\s+\w+\s+`+plainAmt+`\b`,
		`\b\w+\s+`+acct+`\s+`+plainAmt+`\b`,
		`\b`+verb+`\s+`+amt+`\s+to\s+`+acct+`\s+\w+\b`,
	)},
	{domain.IntentConfirmation, anyOf(
		`\byes\b`, `\byeah\b`, `\byh\b`, `\byep\b`, `\byup\b`, `\by\b`, `\bconfirm\b`,
		`\bproceed\b`, `\bcontinue\b`, `\bok\b`, `\bokay\b`, `\bcorrect\b`, `\bsharp\b`,
		`\bsend\s+it\b`, `\bsend\s+the\s+money\b`, `\bdo\s+it\b`, `\bgo\s+ahead\b`,
		`\bapprove\b`, `\baccept\b`, `\bagree\b`, `\bsure\b`, `\bperfect\b`, `\bexact\b`,
	)},
	{domain.IntentDenial, anyOf(
		`^no$`, `^cancel$`, `^stop$`, `^abort$`, `don't`, `don’t`, `not.*want`, `not.*looking`,
	)},
	{domain.IntentAmountOnly, anyOf(
		`^₦?\d+(?:\.\d+)?[km]?$`, `^\d+\s*(?:naira|₦)?$`,
	)},
	{domain.IntentHelp, anyOf(
		`help`, `what can you do`, `commands`, `assistance`, `talk.*normal`, `normal.*conversation`,
	)},
	{domain.IntentGreeting, anyOf(
		`\bhi\b`, `\bhello\b`, `\bhey\b`, `\byo\b`, `\byoo\b`, `\bwassup\b`, `\bwhat's up\b`,
		`good morning`, `good afternoon`, `good evening`, `good day`,
		`morning`, `afternoon`, `evening`, `howdy`, `\bsup\b`,
		`what's good`, `what's happening`, `greetings`, `salutations`,
	)},
	{domain.IntentGreetingQuestion, anyOf(
		`how.*are.*you`, `how.*you.*doing`, `how.*things`, `how.*life`, `how.*your.*day`, `what.*up`,
	)},
	{domain.IntentGreetingResponse, anyOf(
		`good.*morning`, `good.*afternoon`, `good.*evening`, `have.*good.*day`, `nice.*day`,
	)},
	{domain.IntentConversationalResponse, anyOf(
		`i dey ask you`, `you nko`, `and you`, `you.*dey`,
	)},
	{domain.IntentRepetitionComplaint, anyOf(
		`already.*told`, `told.*you.*already`, `keep.*asking`, `again.*again`, `stop.*asking`,
	)},
	{domain.IntentHistory, anyOf(
		`history`, `transactions`, `what.*did`, `what.*happened`, `recent.*activity`,
		`my.*activity`, `show.*transactions`, `payment.*history`,
	)},
	{domain.IntentTransfersSent, anyOf(
		`transfer.*list`, `money.*sent`, `transfers.*made`, `sent.*money`, `outgoing`,
		`how much.*sent`, `sent.*this.*week`, `sent.*today`, `transfers.*week`, `how much.*transfer`,
		`transactions?.*sent`, `sent.*out`, `transactions.*out`, `money.*out`, `transfers.*out`,
		`what.*sent`, `money.*transfer`, `transfer.*history`, `how.*about.*transactions`,
		`about.*sent`, `money.*i.*transfer`,
	)},
	{domain.IntentPeopleSentMoney, anyOf(
		`who.*are.*the.*people.*i.*sent`, `who.*did.*i.*send.*money`, `people.*i.*sent.*money`,
		`who.*i.*sent.*money`, `recipients.*i.*sent.*money`, `who.*received.*money`,
		`list.*people.*sent`, `show.*people.*sent`, `people.*i.*transferred.*money`, `money.*to.*who`,
	)},
	{domain.IntentNicknameCreation, anyOf(
		`remember.*is my`, `is my.*plug`, `is my.*guy`, `is my.*person`, `is my.*friend`,
		`is my.*contact`, `is my.*babe`, `is my.*sis`, `is my.*bro`, `save.*as my`,
		`call.*my`, `is my.*dealer`, `is my.*supplier`, `please remember.*is`, `remember that.*is`,
	)},
	{domain.IntentCorrection, anyOf(
		`that's not right`, `not correct`, `wrong`, `incorrect`, `not right`,
		`but i.*sent.*money`, `but i.*made.*transfer`, `actually i.*sent`, `i already.*sent`, `i did.*send`,
	)},
	{domain.IntentCasualResponse, anyOf(
		`^okay$`, `^ok$`, `^alright$`, `^sure$`, `^cool$`, `^nice$`, `^good$`, `^correct$`, `^sharp$`,
	)},
	{domain.IntentConversation, anyOf(
		`talk`, `chat`, `conversation`, `normal`, `casual`, `im.*good`, `i.*am.*good`,
		`doing.*great`, `im.*fine`, `how.*are.*you.*doing`,
	)},
	{domain.IntentComplaint, anyOf(
		`that.*not`, `this.*wrong`, `incorrect`, `missing`, `where.*my`, `i.*did.*but`, `should.*show`,
	)},
	{domain.IntentThanks, anyOf(
		`thank`, `appreciate`, `grateful`, `dalu`, `\be se\b`,
	)},
	{domain.IntentBeneficiaryMention, anyOf(
		`saved.*beneficiary`, `saved.*contact`, `i.*have.*saved`, `beneficiary`, `saved.*recipient`,
	)},
	{domain.IntentListBeneficiaries, anyOf(
		`list.*beneficiar`, `show.*beneficiar`, `my.*beneficiar`, `get.*beneficiar`, `beneficiar.*list`,
		`my.*contacts`, `saved.*contacts`, `who.*saved`, `show.*contacts`, `show.*recipients`,
		`my.*recipients`, `list.*recipients`, `get.*recipients`, `recipients.*list`, `saved.*recipients`,
	)},
	{domain.IntentAddBeneficiary, anyOf(
		`save.*contact`, `add.*beneficiary`, `save.*beneficiary`, `remember.*contact`,
		`add.*\d{10}.*bank`, `save.*\d{10}.*bank`, `want.*to.*add.*\d{10}`, `add.*to.*saved`,
		`save.*to.*beneficiary`, `add.*\d{10}.*to.*saved`,
	)},
	{domain.IntentNamedTransferWithAccount, anyOf(
		`send.*to\s+[a-z]+\s+at\s+\d{10}`, `transfer.*to\s+[a-z]+\s+at\s+\d{10}`, `send.*to\s+[a-z]+\s+\d{10}`,
	)},
	{domain.IntentBeneficiaryTransfer, []matcher{
		guarded(`send.*to\s+my\s+(`+personRun+`)`, namedPayee),
		guarded(`transfer.*to\s+my\s+(`+personRun+`)`, namedPayee),
		guarded(`pay\s+my\s+(`+personRun+`)`, namedPayee),
		guarded(`send.*to\s+([a-z]{3,})\b`, namedPayee),
		guarded(`transfer.*to\s+([a-z]{3,})\b`, namedPayee),
		guarded(`pay\s+([a-z]{3,})\b`, namedPayee),
	}},
	{domain.IntentBanks, anyOf(
		`^banks$`, `\b(?:list|show|which|what|supported|available|all)\b.*\bbanks\b`,
	)},
}

// priority decides between intents that matched the same message. Earlier
// wins.
var priority = []domain.Intent{
	domain.IntentRepetitionComplaint,
	domain.IntentDenial,
	domain.IntentAmountOnly,
	domain.IntentConversationalResponse,
	domain.IntentGreetingResponse,
	domain.IntentGreetingQuestion,
	domain.IntentGreeting,
	domain.IntentNicknameCreation,
	domain.IntentAddBeneficiary,
	domain.IntentListBeneficiaries,
	domain.IntentBanks,
	domain.IntentBeneficiaryMention,
	domain.IntentNamedTransferWithAccount,
	domain.IntentAccountBankAmountTransfer,
	domain.IntentAccountResolve,
	domain.IntentPeopleSentMoney,
	domain.IntentTransfersSent,
	domain.IntentBeneficiaryTransfer,
	domain.IntentBalance,
	domain.IntentHistory,
	domain.IntentTransfer,
	domain.IntentHelp,
	domain.IntentConversation,
	domain.IntentCorrection,
	domain.IntentComplaint,
	domain.IntentCasualResponse,
	domain.IntentConfirmation,
	domain.IntentThanks,
}
