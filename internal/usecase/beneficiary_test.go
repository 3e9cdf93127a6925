package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chatbank-agent/internal/domain"
)

func saveAdaeze(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	ada := domain.Recipient{
		AccountName: "ADAEZE OKAFOR", AccountNumber: "2222222222", BankCode: "999992",
		BankName: "OPay", RecipientCode: "RCP_ada",
	}
	require.NoError(t, h.store.SaveRecipient(ctx, testUser, ada))
	require.NoError(t, h.store.AddNickname(ctx, testUser, ada.Key(), "babe"))
}

var yinka = domain.Recipient{
	AccountName: "YINKA BELLO", AccountNumber: "3333333333", BankCode: "058",
	BankName: "GTBank", RecipientCode: "RCP_yinka",
}

func TestBeneficiaryTransfer_ByNickname(t *testing.T) {
	h := newHarness(t)
	saveAdaeze(t, h)

	reply := h.send(t, "send 5k to my babe")
	require.Equal(t, "💰 **Transfer Confirmation**\n\nSend ₦5,000.00 to **ADAEZE OKAFOR** (2222222222, OPay)?\n\nReply 'yes' to confirm or 'no' to cancel.", reply)
	st, ok := h.state(t)
	require.True(t, ok)
	require.Equal(t, domain.KindBeneficiaryTransferPendingConfirm, st.Kind)

	require.Equal(t, "✅ **Transfer Successful**\n\n₦5,000.00 sent to ADAEZE OKAFOR.", h.send(t, "yes"))
	calls := h.pay.snapshot()
	require.Zero(t, calls.createCalls)
	require.Equal(t, "RCP_ada", calls.lastTransfer.code)
	require.Len(t, h.followUps(), 1)
}

func TestBeneficiaryTransfer_AsksForAmount(t *testing.T) {
	h := newHarness(t)
	saveAdaeze(t, h)

	require.Equal(t, "How much would you like to send to **ADAEZE OKAFOR**?", h.send(t, "pay my babe"))
	st, ok := h.state(t)
	require.True(t, ok)
	require.Equal(t, domain.KindBeneficiaryTransferPendingAmount, st.Kind)
	draft, _ := st.Draft()
	require.Equal(t, "RCP_ada", draft.RecipientCode)
}

func TestBeneficiaryTransfer_UnknownName(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "send 5k to my plug")
	require.Contains(t, reply, "❌ **Recipient Not Found**")
	require.Contains(t, reply, "I couldn't find **plug** in your saved recipients.")
	_, ok := h.state(t)
	require.False(t, ok)
}

func TestBeneficiaryTransfer_FindsExternalRecipient(t *testing.T) {
	h := newHarness(t)
	h.external.list = []domain.Recipient{yinka}

	reply := h.send(t, "send 2k to my yinka")
	require.Contains(t, reply, "Send ₦2,000.00 to **YINKA BELLO** (3333333333, GTBank)?")
}

func TestNickname_ImportsExternalRecipient(t *testing.T) {
	h := newHarness(t)
	h.external.list = []domain.Recipient{yinka}

	reply := h.send(t, "remember yinka is my igbo plug")
	require.Equal(t, "✅ Got it! I'll remember **yinka** as your **igbo plug**.\n\n"+
		"Now you can say 'Send 5k to my igbo plug' and I'll know who you mean! 😊", reply)

	saved, err := h.store.ListRecipients(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "YINKA BELLO", saved[0].AccountName)
	require.Equal(t, "RCP_yinka", saved[0].RecipientCode)
	require.Equal(t, []string{"igbo plug"}, saved[0].Nicknames)

	require.Contains(t, h.send(t, "send 2k to my igbo plug"), "Send ₦2,000.00 to **YINKA BELLO**")
}

func TestNickname_UnknownRecipient(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "remember tobi is my barber")
	require.Equal(t, "I couldn't find **tobi** in your recipients. Please send money to them first, then I can create the nickname.", reply)
}

func TestAddBeneficiary_SavesThenReportsDuplicate(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, addBeneficiaryFillers[0], h.send(t, "add 0123456789 gtbank as beneficiary"))
	require.Equal(t, []string{"✅ **Beneficiary Added Successfully!**\n\n**TUNDE ADE**\n0123456789 • GTBank\n\nYou can now say 'Send 5k to TUNDE'."}, h.followUps())

	saved, err := h.store.ListRecipients(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Empty(t, saved[0].RecipientCode)
	require.Zero(t, h.pay.snapshot().createCalls)

	h.send(t, "add 0123456789 gtbank as beneficiary")
	again := h.followUps()
	require.Len(t, again, 1)
	require.Contains(t, again[0], "✅ **Already Saved!**")
}

func TestAddBeneficiary_NeedsDetails(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, addBeneficiaryHelp, h.send(t, "add beneficiary"))
	require.Empty(t, h.followUps())
}

func TestAddBeneficiary_UnresolvableAccount(t *testing.T) {
	h := newHarness(t)

	h.send(t, "add 1111111111 gtbank as beneficiary")
	require.Equal(t, []string{"❌ Could not resolve account 1111111111 at GTBank. Please verify the details."}, h.followUps())
	saved, err := h.store.ListRecipients(context.Background(), testUser)
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestListBeneficiaries_GroupsBySource(t *testing.T) {
	h := newHarness(t)
	saveAdaeze(t, h)
	h.external.list = []domain.Recipient{yinka}

	require.Equal(t, listBeneficiaryFillers[0], h.send(t, "show my beneficiaries"))
	out := h.followUps()
	require.Len(t, out, 1)
	require.Equal(t, "📋 **Your Recipients** (2)\n"+
		"\n**Saved here:**\n1. ADAEZE OKAFOR - 2222222222 (OPay) aka babe\n"+
		"\n**From your payments account:**\n1. YINKA BELLO - 3333333333 (GTBank)\n"+
		"\nSay 'Send 5k to ADAEZE' to pay someone.", out[0])
}

func TestListBeneficiaries_Empty(t *testing.T) {
	h := newHarness(t)
	h.send(t, "show my beneficiaries")
	require.Equal(t, []string{noRecipientsReply}, h.followUps())
}
