package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/nlu"
	"chatbank-agent/internal/twophase"
)

const (
	ngn             = "NGN"
	referencePrefix = "WA_"
	referenceTime   = "20060102150405"
	statusSuccess   = "success"
	statusFailed    = "failed"
)

var transferWordRe = regexp.MustCompile(`send|transfer|pay|opay|kuda|access|gtb|account`)

// hasTransferContext reports whether a conversational message is really a
// half-specified transfer, e.g. "opay 8181648623".
func hasTransferContext(t turn) bool {
	e := t.entities
	if !e.HasAccount() && !e.HasBank() && !e.HasAmount() {
		return false
	}
	return transferWordRe.MatchString(strings.ToLower(t.text))
}

func (a *Agent) directTransfer(ctx context.Context, t turn) (string, error) {
	e := t.entities
	switch {
	case e.HasAccount() && e.HasBank() && e.HasAmount():
		return a.prepareTransfer(ctx, t.userID, domain.KindTransferPendingConfirmation, e)
	case e.HasAccount() && e.HasBank():
		return a.resolveAccount(ctx, t.userID, e), nil
	case !e.HasAccount() && e.RecipientName != "":
		return a.beneficiaryTransfer(ctx, t)
	}
	return a.assembleTransfer(ctx, t)
}

// assembleTransfer remembers the parts of a transfer given so far and asks
// for the rest.
func (a *Agent) assembleTransfer(ctx context.Context, t turn) (string, error) {
	e := t.entities
	switch {
	case e.HasAccount() && e.HasBank():
		code, name, ok := bankFor(e)
		if !ok {
			return unknownBankReply(e.BankName), nil
		}
		p := domain.AccountIdentified{AccountNumber: e.AccountNumber, BankCode: code, BankName: name}
		if err := a.setState(ctx, t.userID, domain.KindAccountIdentified, p); err != nil {
			return "", err
		}
		return a.pick([]string{
			fmt.Sprintf("I see you mentioned that %s account %s. What would you like to do with it? Send money or just verify the account?", name, e.AccountNumber),
			fmt.Sprintf("Got it - %s account %s. Are you looking to send money to this account or check something else?", name, e.AccountNumber),
		}), nil
	case e.HasAccount() && e.HasAmount():
		p := domain.MissingBank{AccountNumber: e.AccountNumber, Amount: e.Amount}
		if err := a.setState(ctx, t.userID, domain.KindTransferMissingBank, p); err != nil {
			return "", err
		}
		amount := domain.FormatNaira(e.Amount)
		return a.pick([]string{
			fmt.Sprintf("I see you want to send %s to %s. Which bank is this account with?", amount, e.AccountNumber),
			fmt.Sprintf("Almost there! I have %s for account %s. Which bank is this account with?", amount, e.AccountNumber),
		}), nil
	case e.HasBank() && e.HasAmount():
		p := domain.MissingAccount{BankName: e.BankName, Amount: e.Amount}
		if code, name, ok := bankFor(e); ok {
			p.BankCode, p.BankName = code, name
		}
		if err := a.setState(ctx, t.userID, domain.KindTransferMissingAccount, p); err != nil {
			return "", err
		}
		amount := domain.FormatNaira(e.Amount)
		return a.pick([]string{
			fmt.Sprintf("So you want to send %s to someone at %s. What's their account number?", amount, p.BankName),
			fmt.Sprintf("%s to %s - got it! What's the account number?", amount, p.BankName),
		}), nil
	}
	return a.pick(transferHelpReplies), nil
}

// prepareTransfer takes a transfer with account, bank and maybe amount up to
// the confirmation question under kind.
func (a *Agent) prepareTransfer(ctx context.Context, userID string, kind domain.StateKind, e domain.Entities) (string, error) {
	if !e.HasAccount() || !e.HasBank() {
		return needAccountAndBankReply, nil
	}
	code, bankName, ok := bankFor(e)
	if !ok {
		return unknownBankReply(e.BankName), nil
	}
	draft := domain.TransferDraft{AccountNumber: e.AccountNumber, BankCode: code, BankName: bankName}

	if !e.HasAmount() {
		if err := a.setState(ctx, userID, domain.KindAccountResolvedPendingAmount, domain.PendingAmount{TransferDraft: draft}); err != nil {
			return "", err
		}
		return a.pick([]string{
			fmt.Sprintf("I can send money to that %s account (%s). How much should I send?", bankName, e.AccountNumber),
			fmt.Sprintf("Got the account details! What amount do you want to send to %s (%s)?", e.AccountNumber, bankName),
		}), nil
	}

	draft.Amount = e.Amount
	if reply, ok, err := a.ensureFunds(ctx, userID, e.Amount); err != nil || !ok {
		return reply, err
	}
	info, err := a.payments.ResolveAccount(ctx, e.AccountNumber, code)
	if err != nil {
		return a.resolutionFailed(ctx, userID, bankName, e.AccountNumber, err)
	}
	draft.AccountName = info.AccountName
	if err := a.setState(ctx, userID, kind, domain.PendingConfirmation{TransferDraft: draft}); err != nil {
		return "", err
	}
	if kind == domain.KindTransferPendingConfirmation {
		return detailedConfirmation(draft), nil
	}
	return bankConfirmation(draft), nil
}

// resolveAccount looks the account up in the background and, once found,
// waits for an amount.
func (a *Agent) resolveAccount(ctx context.Context, userID string, e domain.Entities) string {
	if !e.HasAccount() || !e.HasBank() {
		return needResolveDetailsReply
	}
	code, bankName, ok := bankFor(e)
	if !ok {
		return unknownBankReply(e.BankName)
	}
	return a.followUps.Respond(ctx, userID, twophase.Unit{
		Kind:    "account_resolve",
		Fillers: resolveFillers,
		Apology: resolutionFailedText(bankName, e.AccountNumber),
		Work: func(ctx context.Context) (string, error) {
			info, err := a.payments.ResolveAccount(ctx, e.AccountNumber, code)
			if err != nil {
				return "", newError(ErrorResolution, "resolve_account", err)
			}
			draft := domain.TransferDraft{
				AccountNumber: e.AccountNumber,
				BankCode:      code,
				BankName:      bankName,
				AccountName:   info.AccountName,
			}
			if err := a.setState(ctx, userID, domain.KindAccountResolutionPendingAmount, domain.PendingAmount{TransferDraft: draft}); err != nil {
				return "", newError(ErrorBackground, "account_resolve_state", err)
			}
			return fmt.Sprintf("✅ **Account Found**\n\n**%s**\n%s • %s\n\nHow much would you like to send?",
				info.AccountName, e.AccountNumber, bankName), nil
		},
	})
}

// ensureFunds checks the NGN balance covers amount naira. When it does not,
// the flow is dropped and the returned reply explains why.
func (a *Agent) ensureFunds(ctx context.Context, userID string, amount int64) (string, bool, error) {
	available, err := a.ngnBalance(ctx)
	if err != nil {
		return "", false, err
	}
	if available >= domain.ToKobo(amount) {
		return "", true, nil
	}
	if err := a.clearState(ctx, userID); err != nil {
		return "", false, err
	}
	return fmt.Sprintf("❌ **Insufficient Balance**\n\nYou're trying to send %s but your balance is %s.",
		domain.FormatNaira(amount), domain.FormatKobo(available)), false, nil
}

// ngnBalance returns the NGN balance in kobo.
func (a *Agent) ngnBalance(ctx context.Context) (int64, error) {
	balances, err := a.payments.GetBalance(ctx)
	if err != nil {
		return 0, newError(ErrorUpstream, "payments_balance_error", err)
	}
	for _, b := range balances {
		if strings.EqualFold(b.Currency, ngn) {
			return b.AmountMinor, nil
		}
	}
	return 0, nil
}

func (a *Agent) resolutionFailed(ctx context.Context, userID, bankName, account string, cause error) (string, error) {
	a.log.Warn("account resolution failed", errorFields(newError(ErrorResolution, "resolve_account", cause)))
	if err := a.clearState(ctx, userID); err != nil {
		return "", err
	}
	return resolutionFailedText(bankName, account), nil
}

func resolutionFailedText(bankName, account string) string {
	return fmt.Sprintf("I couldn't verify that %s account %s. Please double-check the details and try again.", bankName, account)
}

// executeTransfer sends a confirmed draft. It reuses a known recipient code,
// registers the payee only when nobody has, and records the transfer and the
// payee locally afterwards.
func (a *Agent) executeTransfer(ctx context.Context, userID string, d domain.TransferDraft) string {
	if d.Amount <= 0 {
		return amountMissingReply
	}
	name := payeeName(d)
	log := a.log.WithFields(map[string]interface{}{"user_id": userID, "account": d.AccountNumber, "bank": d.BankCode})

	code, err := a.recipientCode(ctx, userID, d)
	if err != nil {
		log.Error("recipient setup failed", errorFields(err))
		a.metrics.TransferAttempted(ctx, statusFailed)
		return fmt.Sprintf("❌ **Transfer Failed**\n\nI couldn't set up **%s** as a recipient. Please try again later.", name)
	}

	now := a.now().UTC()
	ref := transferReference(userID, now)
	res, err := a.payments.InitiateTransfer(ctx, domain.ToKobo(d.Amount), code, ref, "Transfer via chat to "+name)
	if err != nil {
		log.Error("transfer failed", errorFields(newError(ErrorUpstream, "payments_transfer_error", err)))
		a.metrics.TransferAttempted(ctx, statusFailed)
		return fmt.Sprintf("❌ **Transfer Failed**\n\nI couldn't send %s to **%s**. Please try again in a moment.",
			domain.FormatNaira(d.Amount), name)
	}
	status := res.Status
	if status == "" {
		status = statusSuccess
	}
	if res.Reference != "" {
		ref = res.Reference
	}
	a.metrics.TransferAttempted(ctx, status)
	log.Info("transfer initiated", map[string]interface{}{"reference": ref, "status": status})

	a.recordTransfer(ctx, userID, d, code, domain.Transfer{
		Reference:     ref,
		AmountMinor:   domain.ToKobo(d.Amount),
		RecipientName: name,
		AccountNumber: d.AccountNumber,
		BankCode:      d.BankCode,
		BankName:      d.BankName,
		Status:        status,
		CreatedAt:     now,
	})

	if status != statusSuccess {
		return fmt.Sprintf("⏳ **Transfer Processing**\n\n%s to **%s** is %s.\nReference: %s",
			domain.FormatNaira(d.Amount), name, status, ref)
	}
	return fmt.Sprintf("✅ **Transfer Successful**\n\n%s sent to %s.", domain.FormatNaira(d.Amount), name)
}

func (a *Agent) recipientCode(ctx context.Context, userID string, d domain.TransferDraft) (string, error) {
	if d.RecipientCode != "" {
		return d.RecipientCode, nil
	}
	dup, err := a.directory.CheckDuplicate(ctx, userID, d.AccountNumber, d.BankCode)
	if err != nil {
		return "", newError(ErrorInternal, "duplicate_check_error", err)
	}
	if dup.IsDuplicate && dup.Existing.RecipientCode != "" {
		return dup.Existing.RecipientCode, nil
	}
	code, err := a.payments.CreateRecipient(ctx, payeeName(d), d.AccountNumber, d.BankCode)
	if err != nil {
		return "", newError(ErrorUpstream, "payments_create_recipient_error", err)
	}
	return code, nil
}

// recordTransfer keeps the local transfer log and recipient list in step
// with a sent transfer and sends the receipt. Failures here are logged only;
// the money has already moved.
func (a *Agent) recordTransfer(ctx context.Context, userID string, d domain.TransferDraft, code string, tr domain.Transfer) {
	log := a.log.WithFields(map[string]interface{}{"user_id": userID, "reference": tr.Reference})
	if err := a.local.SaveTransfer(ctx, userID, tr); err != nil {
		log.Warn("transfer log write failed", map[string]interface{}{"error": err.Error()})
	}
	r := domain.Recipient{
		AccountName:   d.AccountName,
		AccountNumber: d.AccountNumber,
		BankCode:      d.BankCode,
		BankName:      d.BankName,
		RecipientCode: code,
		Source:        domain.SourceLocal,
	}
	if r.AccountName == "" {
		r.AccountName = tr.RecipientName
	}
	if err := a.local.SaveRecipient(ctx, userID, r); err != nil {
		log.Warn("recipient auto-save failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.directory.Invalidate(ctx, userID); err != nil {
		log.Warn("recipient cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
	a.followUps.Send(ctx, userID, "receipt", receipt(tr))
}

func receipt(tr domain.Transfer) string {
	return fmt.Sprintf("🧾 **Transfer Receipt**\n\n"+
		"Amount: %s\nTo: %s\nAccount: %s (%s)\nReference: %s\nStatus: %s\nDate: %s",
		domain.FormatKobo(tr.AmountMinor), tr.RecipientName, tr.AccountNumber, tr.BankName,
		tr.Reference, tr.Status, tr.CreatedAt.Format("02 Jan 2006, 15:04 MST"))
}

// transferReference is WA_<yyyymmddhhmmss>_<last four characters of user>.
func transferReference(userID string, now time.Time) string {
	tail := userID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return referencePrefix + now.UTC().Format(referenceTime) + "_" + tail
}

// bankFor returns the code and display name of the bank in e.
func bankFor(e domain.Entities) (code, name string, ok bool) {
	code = e.BankCode
	if code == "" {
		if code, ok = nlu.ResolveBankCode(e.BankName); !ok {
			return "", "", false
		}
	}
	return code, nlu.BankDisplayName(code), true
}

func unknownBankReply(name string) string {
	return fmt.Sprintf("Sorry, I couldn't find the bank '%s'. Try the common name, like GTBank, Access, Opay or Kuda. Type 'banks' to see the full list.", name)
}

func shortConfirmation(d domain.TransferDraft) string {
	return fmt.Sprintf("💰 **Transfer Confirmation**\n\nSend %s to **%s**?\n\nReply 'yes' to confirm or 'no' to cancel.",
		domain.FormatNaira(d.Amount), payeeName(d))
}

func bankConfirmation(d domain.TransferDraft) string {
	return fmt.Sprintf("💰 **Transfer Confirmation**\n\nSend %s to **%s** at %s?\n\nReply 'yes' to confirm or 'no' to cancel.",
		domain.FormatNaira(d.Amount), payeeName(d), d.BankName)
}

func detailedConfirmation(d domain.TransferDraft) string {
	return fmt.Sprintf("💰 **Transfer Confirmation**\n\n**You want to send:**\n"+
		"• Amount: %s\n• To: %s\n• Account: %s\n• Bank: %s\n\n"+
		"Is this correct? Type \"yes\" to proceed or \"no\" to cancel.",
		domain.FormatNaira(d.Amount), payeeName(d), d.AccountNumber, d.BankName)
}
