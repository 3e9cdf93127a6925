package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/nlu"
)

var (
	shortGreetings = map[string]bool{"hi": true, "hello": true, "hey": true, "yo": true, "yoo": true}

	// Intents that abandon a pending confirmation and are answered fresh.
	confirmationEscapes = map[domain.Intent]bool{
		domain.IntentBalance:           true,
		domain.IntentHistory:           true,
		domain.IntentListBeneficiaries: true,
		domain.IntentGreeting:          true,
		domain.IntentBanks:             true,
	}

	sendWordRe   = regexp.MustCompile(`\b(?:send|transfer|pay)\b`)
	verifyWordRe = regexp.MustCompile(`\b(?:check|verify|resolve|who)\b`)
)

// continueFlow handles a message while st is live. The order matters:
// cancel beats everything, social asides never touch the state, and a fresh
// request drops the flow before the per-kind handling.
func (a *Agent) continueFlow(ctx context.Context, t turn, st domain.State) (string, error) {
	switch {
	case nlu.IsCancel(t.text):
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		return a.pick(cancelReplies), nil
	case t.intent.Social():
		return a.socialAck(t) + " " + reminder(st), nil
	case nlu.WantsFreshStart(t.text, topicOf(st.Kind)):
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		return a.route(ctx, t)
	}

	switch {
	case st.Kind.AwaitingConfirmation():
		return a.confirm(ctx, t, st)
	case st.Kind.AwaitingAmount():
		return a.collectAmount(ctx, t, st)
	}

	switch p := st.Payload.(type) {
	case domain.MissingBank:
		return a.completeMissingBank(ctx, t, p)
	case domain.MissingAccount:
		return a.completeMissingAccount(ctx, t, p)
	case domain.AccountIdentified:
		return a.completeIdentified(ctx, t, p)
	}

	if err := a.clearState(ctx, t.userID); err != nil {
		return "", err
	}
	return a.route(ctx, t)
}

func topicOf(kind domain.StateKind) nlu.Topic {
	switch {
	case strings.Contains(string(kind), "beneficiary"):
		return nlu.TopicBeneficiary
	case strings.Contains(string(kind), "transfer"):
		return nlu.TopicTransfer
	}
	return nlu.TopicOther
}

func (a *Agent) socialAck(t turn) string {
	switch t.intent {
	case domain.IntentGreeting:
		if shortGreetings[strings.ToLower(t.text)] {
			return a.pick(shortGreetingAcks)
		}
		return "Hi there! 👋"
	case domain.IntentThanks:
		return "You're welcome! 😊"
	}
	return "Hi! 😊"
}

// reminder restates what the flow in st is still waiting for.
func reminder(st domain.State) string {
	switch p := st.Payload.(type) {
	case domain.PendingConfirmation:
		return fmt.Sprintf("I was waiting for you to confirm sending %s to **%s**. Should I proceed? (yes/no)",
			domain.FormatNaira(p.Amount), payeeName(p.TransferDraft))
	case domain.PendingAmount:
		switch st.Kind {
		case domain.KindAccountResolutionPendingAmount:
			return fmt.Sprintf("I was helping you send money to **%s** at %s. How much would you like to send?",
				payeeName(p.TransferDraft), p.BankName)
		case domain.KindAccountResolvedPendingAmount:
			return fmt.Sprintf("I was helping you send money to that %s account (%s). How much would you like to send?",
				p.BankName, p.AccountNumber)
		}
		return fmt.Sprintf("I was helping you send money to **%s**. How much would you like to send?", payeeName(p.TransferDraft))
	case domain.MissingBank:
		return fmt.Sprintf("I still need the bank for account %s. Which bank is it with?", p.AccountNumber)
	case domain.MissingAccount:
		return fmt.Sprintf("I still need the account number for that %s transfer. What's the account number?", p.BankName)
	case domain.AccountIdentified:
		return fmt.Sprintf("You mentioned %s account %s. Want to send money there or just verify it?", p.BankName, p.AccountNumber)
	}
	return "I was helping you with something. What would you like to do?"
}

func payeeName(d domain.TransferDraft) string {
	switch {
	case d.AccountName != "":
		return d.AccountName
	case d.RecipientName != "":
		return d.RecipientName
	}
	return d.AccountNumber
}

func (a *Agent) confirm(ctx context.Context, t turn, st domain.State) (string, error) {
	draft, _ := st.Draft()
	answer := nlu.ParseConfirmation(t.text)
	switch {
	case answer == nlu.AnswerYes || t.intent == domain.IntentConfirmation:
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		return a.executeTransfer(ctx, t.userID, draft), nil
	case answer == nlu.AnswerNo || t.intent == domain.IntentDenial:
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		return transferCancelledReply, nil
	case confirmationEscapes[t.intent]:
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		return a.route(ctx, t)
	}
	return askConfirmReply, nil
}

func (a *Agent) collectAmount(ctx context.Context, t turn, st domain.State) (string, error) {
	amount := nlu.ParseAmount(t.text)
	if amount == 0 {
		amount = t.entities.Amount
	}
	if amount <= 0 {
		return askAmountReply, nil
	}

	draft, _ := st.Draft()
	draft.Amount = amount
	if reply, ok, err := a.ensureFunds(ctx, t.userID, amount); err != nil || !ok {
		return reply, err
	}

	switch st.Kind {
	case domain.KindBeneficiaryTransferPendingAmount:
		if err := a.setState(ctx, t.userID, domain.KindBeneficiaryTransferPendingConfirm, domain.PendingConfirmation{TransferDraft: draft}); err != nil {
			return "", err
		}
		return shortConfirmation(draft), nil
	case domain.KindAccountResolutionPendingAmount:
		if err := a.setState(ctx, t.userID, domain.KindDirectTransferPendingConfirmation, domain.PendingConfirmation{TransferDraft: draft}); err != nil {
			return "", err
		}
		return detailedConfirmation(draft), nil
	}

	// account_resolved_pending_amount: the name is looked up only now.
	info, err := a.payments.ResolveAccount(ctx, draft.AccountNumber, draft.BankCode)
	if err != nil {
		return a.resolutionFailed(ctx, t.userID, draft.BankName, draft.AccountNumber, err)
	}
	draft.AccountName = info.AccountName
	if err := a.setState(ctx, t.userID, domain.KindAccountBankAmountPendingConfirmation, domain.PendingConfirmation{TransferDraft: draft}); err != nil {
		return "", err
	}
	return bankConfirmation(draft), nil
}

func (a *Agent) completeMissingBank(ctx context.Context, t turn, p domain.MissingBank) (string, error) {
	if !t.entities.HasBank() {
		return a.stayOrReroute(ctx, t, fmt.Sprintf("Which bank is account %s with? (e.g. GTBank, Opay, Kuda)", p.AccountNumber))
	}
	if err := a.clearState(ctx, t.userID); err != nil {
		return "", err
	}
	e := t.entities
	e.AccountNumber = p.AccountNumber
	if e.Amount == 0 {
		e.Amount = p.Amount
	}
	return a.prepareTransfer(ctx, t.userID, domain.KindAccountBankAmountPendingConfirmation, e)
}

func (a *Agent) completeMissingAccount(ctx context.Context, t turn, p domain.MissingAccount) (string, error) {
	if !t.entities.HasAccount() {
		return a.stayOrReroute(ctx, t, fmt.Sprintf("What's the %s account number? It should be 10 digits.", p.BankName))
	}
	if err := a.clearState(ctx, t.userID); err != nil {
		return "", err
	}
	e := t.entities
	if !e.HasBank() {
		e.BankName, e.BankCode = p.BankName, p.BankCode
	}
	if e.Amount == 0 {
		e.Amount = p.Amount
	}
	return a.prepareTransfer(ctx, t.userID, domain.KindAccountBankAmountPendingConfirmation, e)
}

func (a *Agent) completeIdentified(ctx context.Context, t turn, p domain.AccountIdentified) (string, error) {
	lower := strings.ToLower(t.text)
	e := domain.Entities{AccountNumber: p.AccountNumber, BankCode: p.BankCode, BankName: p.BankName}

	amount := t.entities.Amount
	if amount == 0 && sendWordRe.MatchString(lower) {
		amount = nlu.ParseAmount(lower)
	}
	switch {
	case amount > 0:
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		e.Amount = amount
		return a.prepareTransfer(ctx, t.userID, domain.KindTransferPendingConfirmation, e)
	case sendWordRe.MatchString(lower):
		draft := domain.TransferDraft{AccountNumber: p.AccountNumber, BankCode: p.BankCode, BankName: p.BankName}
		if err := a.setState(ctx, t.userID, domain.KindAccountResolvedPendingAmount, domain.PendingAmount{TransferDraft: draft}); err != nil {
			return "", err
		}
		return fmt.Sprintf("Perfect! How much do you want to send to that %s account (%s)?", p.BankName, p.AccountNumber), nil
	case verifyWordRe.MatchString(lower):
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		return a.resolveAccount(ctx, t.userID, e), nil
	}
	if err := a.clearState(ctx, t.userID); err != nil {
		return "", err
	}
	return a.route(ctx, t)
}

// stayOrReroute keeps the flow and re-asks when the message reads as an
// answer, and drops the flow when it is a different request.
func (a *Agent) stayOrReroute(ctx context.Context, t turn, prompt string) (string, error) {
	switch t.intent {
	case domain.IntentConversation, domain.IntentAmountOnly:
		return prompt, nil
	}
	if err := a.clearState(ctx, t.userID); err != nil {
		return "", err
	}
	return a.route(ctx, t)
}
