package usecase

import (
	"context"
	"fmt"
	"strings"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/nlu"
	"chatbank-agent/internal/twophase"
)

func (a *Agent) beneficiaryTransfer(ctx context.Context, t turn) (string, error) {
	name := t.entities.RecipientName
	if name == "" {
		name = nlu.ExtractRecipientName(t.text)
	}
	if name == "" {
		return needRecipientNameReply, nil
	}

	r, ok, err := a.directory.FindByName(ctx, t.userID, name)
	if err != nil {
		return "", newError(ErrorInternal, "recipient_lookup_error", err)
	}
	if !ok {
		return fmt.Sprintf("❌ **Recipient Not Found**\n\nI couldn't find **%s** in your saved recipients.\n\n"+
			"You can:\n• Send with account details: 'Send 5k to 0123456789 GTBank'\n"+
			"• Save them first: 'Add 0123456789 GTBank as beneficiary'", name), nil
	}

	draft := domain.TransferDraft{
		AccountNumber: r.AccountNumber,
		BankCode:      r.BankCode,
		BankName:      r.BankName,
		AccountName:   r.AccountName,
		RecipientCode: r.RecipientCode,
		RecipientName: name,
	}
	if draft.BankName == "" {
		draft.BankName = nlu.BankDisplayName(r.BankCode)
	}

	if !t.entities.HasAmount() {
		if err := a.setState(ctx, t.userID, domain.KindBeneficiaryTransferPendingAmount, domain.PendingAmount{TransferDraft: draft}); err != nil {
			return "", err
		}
		return fmt.Sprintf("How much would you like to send to **%s**?", r.AccountName), nil
	}

	draft.Amount = t.entities.Amount
	if reply, ok, err := a.ensureFunds(ctx, t.userID, draft.Amount); err != nil || !ok {
		return reply, err
	}
	if err := a.setState(ctx, t.userID, domain.KindBeneficiaryTransferPendingConfirm, domain.PendingConfirmation{TransferDraft: draft}); err != nil {
		return "", err
	}
	return fmt.Sprintf("💰 **Transfer Confirmation**\n\nSend %s to **%s** (%s, %s)?\n\nReply 'yes' to confirm or 'no' to cancel.",
		domain.FormatNaira(draft.Amount), r.AccountName, draft.AccountNumber, draft.BankName), nil
}

// addBeneficiary resolves and saves a new recipient in the background.
func (a *Agent) addBeneficiary(ctx context.Context, t turn) string {
	e := t.entities
	if !e.HasAccount() || !e.HasBank() {
		return addBeneficiaryHelp
	}
	code, bankName, ok := bankFor(e)
	if !ok {
		return fmt.Sprintf("❌ I don't recognize the bank '%s'. Please use a supported bank name.", e.BankName)
	}
	return a.followUps.Respond(ctx, t.userID, twophase.Unit{
		Kind:    "add_beneficiary",
		Fillers: addBeneficiaryFillers,
		Apology: addBeneficiaryApology,
		Work: func(ctx context.Context) (string, error) {
			info, err := a.payments.ResolveAccount(ctx, e.AccountNumber, code)
			if err != nil {
				a.log.Warn("beneficiary resolution failed", errorFields(newError(ErrorResolution, "resolve_account", err)))
				return fmt.Sprintf("❌ Could not resolve account %s at %s. Please verify the details.", e.AccountNumber, bankName), nil
			}

			dup, err := a.directory.CheckDuplicate(ctx, t.userID, e.AccountNumber, code)
			if err != nil {
				return "", newError(ErrorBackground, "duplicate_check", err)
			}
			if dup.IsDuplicate {
				existing := dup.Existing
				return fmt.Sprintf("✅ **Already Saved!**\n\n**%s** (%s, %s) is already in your recipients.\n\nSay 'Send 5k to %s' to pay them.",
					existing.AccountName, existing.AccountNumber, bankName, existing.FirstName()), nil
			}

			r := domain.Recipient{
				AccountName:   info.AccountName,
				AccountNumber: e.AccountNumber,
				BankCode:      code,
				BankName:      bankName,
				Source:        domain.SourceLocal,
			}
			if err := a.local.SaveRecipient(ctx, t.userID, r); err != nil {
				return "", newError(ErrorBackground, "save_recipient", err)
			}
			if err := a.directory.Invalidate(ctx, t.userID); err != nil {
				a.log.Warn("recipient cache invalidation failed", map[string]interface{}{"error": err.Error()})
			}
			return fmt.Sprintf("✅ **Beneficiary Added Successfully!**\n\n**%s**\n%s • %s\n\nYou can now say 'Send 5k to %s'.",
				r.AccountName, r.AccountNumber, bankName, r.FirstName()), nil
		},
	})
}

func (a *Agent) listBeneficiaries(ctx context.Context, t turn) string {
	return a.followUps.Respond(ctx, t.userID, twophase.Unit{
		Kind:    "list_beneficiaries",
		Fillers: listBeneficiaryFillers,
		Apology: recipientsApology,
		Work: func(ctx context.Context) (string, error) {
			list, err := a.directory.Recipients(ctx, t.userID)
			if err != nil {
				return "", newError(ErrorBackground, "list_recipients", err)
			}
			return formatRecipients(list), nil
		},
	})
}

func formatRecipients(list []domain.Recipient) string {
	if len(list) == 0 {
		return noRecipientsReply
	}
	var local, external []domain.Recipient
	for _, r := range list {
		if r.Source == domain.SourceLocal {
			local = append(local, r)
		} else {
			external = append(external, r)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Your Recipients** (%d)\n", len(list))
	writeGroup := func(title string, rs []domain.Recipient) {
		if len(rs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n**%s**\n", title)
		for i, r := range rs {
			bank := r.BankName
			if bank == "" {
				bank = nlu.BankDisplayName(r.BankCode)
			}
			fmt.Fprintf(&b, "%d. %s - %s (%s)", i+1, r.AccountName, r.AccountNumber, bank)
			if len(r.Nicknames) > 0 {
				fmt.Fprintf(&b, " aka %s", strings.Join(r.Nicknames, ", "))
			}
			b.WriteByte('\n')
		}
	}
	writeGroup("Saved here:", local)
	writeGroup("From your payments account:", external)
	fmt.Fprintf(&b, "\nSay 'Send 5k to %s' to pay someone.", list[0].FirstName())
	return b.String()
}

func (a *Agent) createNickname(ctx context.Context, t turn) (string, error) {
	nick, ok := nlu.ExtractNickname(t.text)
	if !ok {
		return nicknameUnclearReply, nil
	}
	r, found, err := a.directory.FindByName(ctx, t.userID, nick.RecipientName)
	if err != nil {
		return "", newError(ErrorInternal, "recipient_lookup_error", err)
	}
	if !found {
		return fmt.Sprintf("I couldn't find **%s** in your recipients. Please send money to them first, then I can create the nickname.", nick.RecipientName), nil
	}

	log := a.log.WithFields(map[string]interface{}{"user_id": t.userID, "account": r.AccountNumber})
	if r.Source == domain.SourceExternal {
		imported := r
		imported.Source = domain.SourceLocal
		imported.Nicknames = nil
		if err := a.local.SaveRecipient(ctx, t.userID, imported); err != nil {
			log.Error("recipient import failed", map[string]interface{}{"error": err.Error()})
			return nicknameSaveFailedReply, nil
		}
	}
	if err := a.local.AddNickname(ctx, t.userID, r.Key(), nick.Nickname); err != nil {
		log.Error("nickname save failed", map[string]interface{}{"error": err.Error()})
		return nicknameSaveFailedReply, nil
	}
	if err := a.directory.Invalidate(ctx, t.userID); err != nil {
		log.Warn("recipient cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
	return fmt.Sprintf("✅ Got it! I'll remember **%s** as your **%s**.\n\nNow you can say 'Send 5k to my %s' and I'll know who you mean! 😊",
		nick.RecipientName, nick.Nickname, nick.Nickname), nil
}
