package domain

// Intent is the single label the classifier assigns to an inbound message.
type Intent string

const (
	IntentBalance                   Intent = "balance"
	IntentTransfer                  Intent = "transfer"
	IntentAccountResolve            Intent = "account_resolve"
	IntentAccountBankAmountTransfer Intent = "account_bank_amount_transfer"
	IntentConfirmation              Intent = "confirmation"
	IntentDenial                    Intent = "denial"
	IntentAmountOnly                Intent = "amount_only"
	IntentHelp                      Intent = "help"
	IntentGreeting                  Intent = "greeting"
	IntentGreetingQuestion          Intent = "greeting_question"
	IntentGreetingResponse          Intent = "greeting_response"
	IntentConversationalResponse    Intent = "conversational_response"
	IntentRepetitionComplaint       Intent = "repetition_complaint"
	IntentHistory                   Intent = "history"
	IntentTransfersSent             Intent = "transfers_sent"
	IntentPeopleSentMoney           Intent = "people_sent_money"
	IntentNicknameCreation          Intent = "nickname_creation"
	IntentCorrection                Intent = "correction"
	IntentCasualResponse            Intent = "casual_response"
	IntentConversation              Intent = "conversation"
	IntentComplaint                 Intent = "complaint"
	IntentThanks                    Intent = "thanks"
	IntentBeneficiaryMention        Intent = "beneficiary_mention"
	IntentListBeneficiaries         Intent = "list_beneficiaries"
	IntentAddBeneficiary            Intent = "add_beneficiary"
	IntentNamedTransferWithAccount  Intent = "named_transfer_with_account"
	IntentBeneficiaryTransfer       Intent = "beneficiary_transfer"
	IntentBanks                     Intent = "banks"
)

// Social reports whether the intent is small talk that must not disturb an
// in-flight transaction.
func (i Intent) Social() bool {
	switch i {
	case IntentGreeting, IntentThanks, IntentCasualResponse:
		return true
	}
	return false
}
