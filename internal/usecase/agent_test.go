package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/recipients"
	"chatbank-agent/internal/repository"
	"chatbank-agent/internal/twophase"
)

const testUser = "2348012345678"

var fixedNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

// ---- fakes ----

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type transferCall struct {
	amountKobo int64
	code       string
	reference  string
	reason     string
}

type fakePayments struct {
	mu sync.Mutex

	balanceKobo int64
	balanceErr  error

	accounts   map[string]string
	resolveErr error

	createdCode string
	createCalls int

	transferStatus string
	transferErr    error
	transferCalls  int
	lastTransfer   transferCall

	transfers    []domain.Transfer
	listErr      error
	lastListFrom time.Time

	banks []domain.Bank
}

func (f *fakePayments) ResolveAccount(_ context.Context, accountNumber, _ string) (domain.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return domain.AccountInfo{}, f.resolveErr
	}
	name, ok := f.accounts[accountNumber]
	if !ok {
		return domain.AccountInfo{}, errors.New("Could not resolve account name")
	}
	return domain.AccountInfo{AccountName: name, AccountNumber: accountNumber}, nil
}

func (f *fakePayments) CreateRecipient(_ context.Context, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return f.createdCode, nil
}

func (f *fakePayments) InitiateTransfer(_ context.Context, amountKobo int64, code, reference, reason string) (domain.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferCalls++
	f.lastTransfer = transferCall{amountKobo: amountKobo, code: code, reference: reference, reason: reason}
	if f.transferErr != nil {
		return domain.TransferResult{}, f.transferErr
	}
	return domain.TransferResult{Reference: reference, Status: f.transferStatus}, nil
}

func (f *fakePayments) GetBalance(context.Context) ([]domain.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return []domain.Balance{{Currency: "USD", AmountMinor: 99}, {Currency: "NGN", AmountMinor: f.balanceKobo}}, nil
}

func (f *fakePayments) ListTransfers(_ context.Context, from, _ time.Time) ([]domain.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastListFrom = from
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.transfers, nil
}

func (f *fakePayments) ListBanks(context.Context) ([]domain.Bank, error) {
	return f.banks, nil
}

func (f *fakePayments) snapshot() fakePayments {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakePayments{
		createCalls:   f.createCalls,
		transferCalls: f.transferCalls,
		lastTransfer:  f.lastTransfer,
		lastListFrom:  f.lastListFrom,
	}
}

type staticSource struct {
	list []domain.Recipient
}

func (s *staticSource) ListRecipients(context.Context, string) ([]domain.Recipient, error) {
	return append([]domain.Recipient(nil), s.list...), nil
}

type fakeLLM struct {
	mu       sync.Mutex
	answer   string
	err      error
	block    bool
	messages []domain.ChatMessage
}

func (f *fakeLLM) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	f.mu.Lock()
	f.messages = messages
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

type outbox struct {
	mu    sync.Mutex
	texts []string
}

func (o *outbox) deliver(_ context.Context, _, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.texts = append(o.texts, text)
	return nil
}

// ---- harness ----

type harness struct {
	agent    *Agent
	store    *repository.MemoryStore
	pay      *fakePayments
	external *staticSource
	llm      *fakeLLM
	orch     *twophase.Orchestrator
	out      *outbox
	clock    *clock
}

func first(int) int { return 0 }

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		pay: &fakePayments{
			balanceKobo:    domain.ToKobo(10_000),
			accounts:       map[string]string{"0123456789": "TUNDE ADE", "8181648623": "JANE DOE"},
			createdCode:    "RCP_new",
			transferStatus: "success",
		},
		external: &staticSource{},
		out:      &outbox{},
		clock:    &clock{t: fixedNow},
	}
	log := logger.NewTestLogger(t)
	h.store = repository.NewMemoryStore(h.clock.now)

	cache, err := recipients.New(h.store, h.external, recipients.WithClock(h.clock.now), recipients.WithLogger(log))
	require.NoError(t, err)
	h.orch, err = twophase.New(h.out.deliver, twophase.WithLogger(log), twophase.WithIntn(first))
	require.NoError(t, err)

	all := append([]Option{WithLogger(log), WithClock(h.clock.now), WithIntn(first)}, opts...)
	h.agent, err = New(h.store, h.pay, cache, h.store, h.orch, all...)
	require.NoError(t, err)
	return h
}

func (h *harness) withLLM(t *testing.T, llm *fakeLLM, opts ...Option) *harness {
	t.Helper()
	h.llm = llm
	for _, opt := range append([]Option{WithLLM(llm)}, opts...) {
		opt(h.agent)
	}
	return h
}

func (h *harness) send(t *testing.T, text string) string {
	t.Helper()
	out, err := h.agent.HandleMessage(context.Background(), MessageInput{UserID: testUser, Text: text})
	require.NoError(t, err)
	return out.Reply
}

// followUps waits for background units and returns what they delivered
// since the last call.
func (h *harness) followUps() []string {
	h.orch.Wait()
	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	texts := h.out.texts
	h.out.texts = nil
	return texts
}

func (h *harness) state(t *testing.T) (domain.State, bool) {
	t.Helper()
	st, ok, err := h.store.GetState(context.Background(), testUser)
	require.NoError(t, err)
	return st, ok
}

func (h *harness) setState(t *testing.T, kind domain.StateKind, p domain.Payload) {
	t.Helper()
	st, err := domain.NewState(kind, p, h.clock.now())
	require.NoError(t, err)
	require.NoError(t, h.store.SetState(context.Background(), testUser, st))
}

var tundeDraft = domain.TransferDraft{
	Amount:        5000,
	AccountNumber: "0123456789",
	BankCode:      "058",
	BankName:      "GTBank",
	AccountName:   "TUNDE ADE",
}

// ---- constructor and input ----

func TestNew_ValidatesDependencies(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	cache, err := recipients.New(store, &staticSource{})
	require.NoError(t, err)
	orch, err := twophase.New((&outbox{}).deliver)
	require.NoError(t, err)

	_, err = New(nil, &fakePayments{}, cache, store, orch)
	require.ErrorContains(t, err, "state store")
	_, err = New(store, nil, cache, store, orch)
	require.ErrorContains(t, err, "payments")
	_, err = New(store, &fakePayments{}, nil, store, orch)
	require.ErrorContains(t, err, "directory")
	_, err = New(store, &fakePayments{}, cache, nil, orch)
	require.ErrorContains(t, err, "local store")
	_, err = New(store, &fakePayments{}, cache, store, nil)
	require.ErrorContains(t, err, "follow-ups")
}

func TestHandleMessage_RejectsUnusableInput(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name   string
		in     MessageInput
		reason string
	}{
		{"no user", MessageInput{Text: "hi"}, "empty_user_id"},
		{"blank text", MessageInput{UserID: testUser, Text: "   "}, "empty_message"},
		{"too long", MessageInput{UserID: testUser, Text: strings.Repeat("a", maxMessageLen+1)}, "message_too_long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.agent.HandleMessage(context.Background(), tc.in)
			var uerr *Error
			require.True(t, errors.As(err, &uerr))
			require.Equal(t, ErrorValidation, uerr.Code)
			require.Equal(t, tc.reason, uerr.Reason)
		})
	}
}

func TestHandleMessage_StoreFailureBecomesApology(t *testing.T) {
	h := newHarness(t)
	h.agent.state = failingState{}
	out, err := h.agent.HandleMessage(context.Background(), MessageInput{UserID: testUser, Text: "what's my balance"})
	require.NoError(t, err)
	require.Equal(t, errorReplies[0], out.Reply)
	require.Equal(t, domain.IntentBalance, out.Intent)
}

type failingState struct{}

func (failingState) GetState(context.Context, string) (domain.State, bool, error) {
	return domain.State{}, false, errors.New("dynamodb unavailable")
}
func (failingState) SetState(context.Context, string, domain.State) error { return nil }
func (failingState) ClearState(context.Context, string) error            { return nil }

// ---- state machine ----

func TestCancel_ClearsStateAndNextMessageIsFresh(t *testing.T) {
	h := newHarness(t)
	h.setState(t, domain.KindAccountBankAmountPendingConfirmation, domain.PendingConfirmation{TransferDraft: tundeDraft})

	require.Equal(t, cancelReplies[0], h.send(t, "cancel"))
	_, ok := h.state(t)
	require.False(t, ok)

	require.Equal(t, greetingReplies[0], h.send(t, "hello"))
	require.Zero(t, h.pay.snapshot().transferCalls)
}

func TestCancel_WorksFromEveryKind(t *testing.T) {
	states := map[domain.StateKind]domain.Payload{
		domain.KindBeneficiaryTransferPendingAmount: domain.PendingAmount{TransferDraft: tundeDraft},
		domain.KindTransferMissingBank:              domain.MissingBank{AccountNumber: "0123456789", Amount: 5000},
		domain.KindTransferMissingAccount:           domain.MissingAccount{BankName: "GTBank", BankCode: "058", Amount: 5000},
		domain.KindAccountIdentified:                domain.AccountIdentified{AccountNumber: "0123456789", BankCode: "058", BankName: "GTBank"},
	}
	for kind, payload := range states {
		t.Run(string(kind), func(t *testing.T) {
			h := newHarness(t)
			h.setState(t, kind, payload)
			require.Equal(t, cancelReplies[0], h.send(t, "never mind"))
			_, ok := h.state(t)
			require.False(t, ok)
		})
	}
}

func TestGreetingDuringFlow_RemindsAndKeepsState(t *testing.T) {
	h := newHarness(t)
	h.setState(t, domain.KindAccountBankAmountPendingConfirmation, domain.PendingConfirmation{TransferDraft: tundeDraft})

	reply := h.send(t, "hi")
	require.Equal(t, "Hey there! 👋 I was waiting for you to confirm sending ₦5,000.00 to **TUNDE ADE**. Should I proceed? (yes/no)", reply)
	st, ok := h.state(t)
	require.True(t, ok)
	require.Equal(t, domain.KindAccountBankAmountPendingConfirmation, st.Kind)

	reply = h.send(t, "thank you")
	require.True(t, strings.HasPrefix(reply, "You're welcome! 😊 I was waiting"))
	_, ok = h.state(t)
	require.True(t, ok)
}

func TestGreetingDuringPendingAmount(t *testing.T) {
	h := newHarness(t)
	draft := tundeDraft
	draft.Amount = 0
	h.setState(t, domain.KindAccountResolutionPendingAmount, domain.PendingAmount{TransferDraft: draft})

	reply := h.send(t, "hello")
	require.Equal(t, "Hey there! 👋 I was helping you send money to **TUNDE ADE** at GTBank. How much would you like to send?", reply)
}

func TestExpiredState_IsTreatedAsAbsent(t *testing.T) {
	h := newHarness(t)
	h.setState(t, domain.KindAccountBankAmountPendingConfirmation, domain.PendingConfirmation{TransferDraft: tundeDraft})
	h.clock.advance(31 * time.Minute)

	require.Equal(t, confirmWithoutStateText, h.send(t, "yes"))
	require.Zero(t, h.pay.snapshot().transferCalls)
}

func TestFreshStart_DropsFlowAndRoutes(t *testing.T) {
	h := newHarness(t)
	draft := tundeDraft
	draft.Amount = 0
	h.setState(t, domain.KindBeneficiaryTransferPendingAmount, domain.PendingAmount{TransferDraft: draft})

	require.Equal(t, balanceFillers[0], h.send(t, "show me my balance"))
	_, ok := h.state(t)
	require.False(t, ok)
	require.Equal(t, []string{"💰 Your balance is **₦10,000.00**."}, h.followUps())
}

func TestPendingAmount_UnparsableRePrompts(t *testing.T) {
	h := newHarness(t)
	draft := tundeDraft
	draft.Amount = 0
	h.setState(t, domain.KindBeneficiaryTransferPendingAmount, domain.PendingAmount{TransferDraft: draft})

	require.Equal(t, askAmountReply, h.send(t, "hmm"))
	st, ok := h.state(t)
	require.True(t, ok)
	require.Equal(t, domain.KindBeneficiaryTransferPendingAmount, st.Kind)
}

func TestPendingAmount_InsufficientBalanceClears(t *testing.T) {
	h := newHarness(t)
	draft := tundeDraft
	draft.Amount = 0
	h.setState(t, domain.KindBeneficiaryTransferPendingAmount, domain.PendingAmount{TransferDraft: draft})

	reply := h.send(t, "50k")
	require.Equal(t, "❌ **Insufficient Balance**\n\nYou're trying to send ₦50,000.00 but your balance is ₦10,000.00.", reply)
	_, ok := h.state(t)
	require.False(t, ok)
}

func TestPendingAmount_MovesToConfirmation(t *testing.T) {
	h := newHarness(t)
	draft := tundeDraft
	draft.Amount = 0
	h.setState(t, domain.KindBeneficiaryTransferPendingAmount, domain.PendingAmount{TransferDraft: draft})

	reply := h.send(t, "2k")
	require.Contains(t, reply, "Send ₦2,000.00 to **TUNDE ADE**?")
	st, ok := h.state(t)
	require.True(t, ok)
	require.Equal(t, domain.KindBeneficiaryTransferPendingConfirm, st.Kind)
	got, _ := st.Draft()
	require.Equal(t, int64(2000), got.Amount)
}

func TestPendingAmount_ResolvedAccountLooksUpNameNow(t *testing.T) {
	h := newHarness(t)
	h.setState(t, domain.KindAccountResolvedPendingAmount, domain.PendingAmount{TransferDraft: domain.TransferDraft{
		AccountNumber: "0123456789", BankCode: "058", BankName: "GTBank",
	}})

	reply := h.send(t, "3000")
	require.Contains(t, reply, "Send ₦3,000.00 to **TUNDE ADE** at GTBank?")
	st, _ := h.state(t)
	require.Equal(t, domain.KindAccountBankAmountPendingConfirmation, st.Kind)
}

func TestConfirmation_AmbiguousRePrompts(t *testing.T) {
	h := newHarness(t)
	h.setState(t, domain.KindAccountBankAmountPendingConfirmation, domain.PendingConfirmation{TransferDraft: tundeDraft})

	require.Equal(t, askConfirmReply, h.send(t, "maybe later"))
	_, ok := h.state(t)
	require.True(t, ok)
}

func TestConfirmation_Denial(t *testing.T) {
	h := newHarness(t)
	h.setState(t, domain.KindAccountBankAmountPendingConfirmation, domain.PendingConfirmation{TransferDraft: tundeDraft})

	require.Equal(t, transferCancelledReply, h.send(t, "no"))
	_, ok := h.state(t)
	require.False(t, ok)
	require.Zero(t, h.pay.snapshot().transferCalls)
}

func TestConfirmation_BanksRequestLeavesFlow(t *testing.T) {
	h := newHarness(t)
	h.pay.banks = []domain.Bank{{Name: "GTBank", Code: "058"}}
	h.setState(t, domain.KindDirectTransferPendingConfirmation, domain.PendingConfirmation{TransferDraft: tundeDraft})

	reply := h.send(t, "which banks do you support")
	require.Equal(t, "🏦 **Available Banks:**\n\n• GTBank", reply)
	_, ok := h.state(t)
	require.False(t, ok)
}

func TestConfirmationWithoutState(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, confirmWithoutStateText, h.send(t, "yes"))
}
