package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/nlu"
	"chatbank-agent/internal/observability"
	"chatbank-agent/internal/recipients"
	"chatbank-agent/internal/twophase"
)

const (
	maxMessageLen     = 1000
	defaultLLMTimeout = 10 * time.Second
)

type StateStore interface {
	GetState(ctx context.Context, userID string) (domain.State, bool, error)
	SetState(ctx context.Context, userID string, st domain.State) error
	ClearState(ctx context.Context, userID string) error
}

type Payments interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (domain.AccountInfo, error)
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	InitiateTransfer(ctx context.Context, amountKobo int64, recipientCode, reference, reason string) (domain.TransferResult, error)
	GetBalance(ctx context.Context) ([]domain.Balance, error)
	ListTransfers(ctx context.Context, from, to time.Time) ([]domain.Transfer, error)
	ListBanks(ctx context.Context) ([]domain.Bank, error)
}

type LLM interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// RecipientDirectory answers "who is this?" from the merged recipient view.
type RecipientDirectory interface {
	Recipients(ctx context.Context, userID string) ([]domain.Recipient, error)
	FindByName(ctx context.Context, userID, name string) (domain.Recipient, bool, error)
	CheckDuplicate(ctx context.Context, userID, accountNumber, bankCode string) (recipients.DuplicateCheck, error)
	Invalidate(ctx context.Context, userID string) error
}

type RecipientWriter interface {
	SaveRecipient(ctx context.Context, userID string, r domain.Recipient) error
	AddNickname(ctx context.Context, userID string, key domain.RecipientKey, nickname string) error
}

type TransferLog interface {
	SaveTransfer(ctx context.Context, userID string, t domain.Transfer) error
	ListTransfers(ctx context.Context, userID string, from, to time.Time) ([]domain.Transfer, error)
}

// LocalStore is the agent's own persistence for recipients and transfers.
type LocalStore interface {
	RecipientWriter
	TransferLog
}

// FollowUps sends second replies. twophase.Orchestrator implements it.
type FollowUps interface {
	Respond(ctx context.Context, userID string, u twophase.Unit) string
	Send(ctx context.Context, userID, kind, text string)
}

type MessageInput struct {
	UserID string
	Text   string
}

type MessageOutput struct {
	Reply  string
	Intent domain.Intent
}

// Agent is the dialogue engine: it classifies a message, advances the user's
// conversation state and produces the reply. Slow work is answered in two
// phases through FollowUps.
//
// Conversation state is read and written without locking, so two messages
// of one user handled at the same time may overwrite each other's state.
type Agent struct {
	state      StateStore
	payments   Payments
	directory  RecipientDirectory
	local      LocalStore
	followUps  FollowUps
	classifier *nlu.Classifier

	llm        LLM
	llmTimeout time.Duration
	log        logger.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	intn       func(n int) int
}

type Option func(*Agent)

// WithLLM enables free-form answers. Without it conversational messages get
// fixed fallback replies.
func WithLLM(llm LLM) Option { return func(a *Agent) { a.llm = llm } }

func WithLLMTimeout(d time.Duration) Option { return func(a *Agent) { a.llmTimeout = d } }

func WithLogger(l logger.Logger) Option { return func(a *Agent) { a.log = l } }

func WithMetrics(m *observability.Metrics) Option { return func(a *Agent) { a.metrics = m } }

func WithClock(now func() time.Time) Option { return func(a *Agent) { a.now = now } }

// WithIntn replaces the reply picker.
func WithIntn(f func(n int) int) Option { return func(a *Agent) { a.intn = f } }

func New(state StateStore, payments Payments, directory RecipientDirectory, local LocalStore, followUps FollowUps, opts ...Option) (*Agent, error) {
	if state == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if payments == nil {
		return nil, errors.New("usecase: payments client must not be nil")
	}
	if directory == nil {
		return nil, errors.New("usecase: recipient directory must not be nil")
	}
	if local == nil {
		return nil, errors.New("usecase: local store must not be nil")
	}
	if followUps == nil {
		return nil, errors.New("usecase: follow-ups must not be nil")
	}
	a := &Agent{
		state:      state,
		payments:   payments,
		directory:  directory,
		local:      local,
		followUps:  followUps,
		classifier: nlu.NewClassifier(),
		llmTimeout: defaultLLMTimeout,
		now:        time.Now,
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrNop(a.log)
	return a, nil
}

// turn is one inbound message after classification.
type turn struct {
	userID   string
	text     string
	intent   domain.Intent
	entities domain.Entities
}

// HandleMessage answers one inbound message. Only unusable input is returned
// as an error; every failure past that point becomes a reply.
func (a *Agent) HandleMessage(ctx context.Context, in MessageInput) (MessageOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	text := strings.TrimSpace(in.Text)
	if userID == "" {
		return MessageOutput{}, newError(ErrorValidation, "empty_user_id", nil)
	}
	if text == "" {
		return MessageOutput{}, newError(ErrorValidation, "empty_message", nil)
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return MessageOutput{}, newError(ErrorValidation, "message_too_long", nil)
	}

	intent, entities := a.classifier.Parse(text)
	a.metrics.IntentClassified(ctx, string(intent))
	log := a.log.WithFields(map[string]interface{}{"user_id": userID, "intent": string(intent)})
	log.Debug("message classified", map[string]interface{}{
		"amount":  entities.Amount,
		"account": entities.AccountNumber,
		"bank":    entities.BankCode,
	})

	t := turn{userID: userID, text: text, intent: intent, entities: entities}
	reply, err := a.dispatch(ctx, t)
	if err != nil {
		log.Error("message handling failed", errorFields(err))
		if cerr := a.state.ClearState(ctx, userID); cerr != nil {
			log.Warn("state reset failed", map[string]interface{}{"error": cerr.Error()})
		}
		reply = a.pick(errorReplies)
	}
	if reply == "" {
		reply = defaultReply
	}
	return MessageOutput{Reply: reply, Intent: intent}, nil
}

func (a *Agent) dispatch(ctx context.Context, t turn) (string, error) {
	st, ok, err := a.state.GetState(ctx, t.userID)
	if err != nil {
		return "", newError(ErrorInternal, "state_read_error", err)
	}
	if ok && st.Expired(a.now()) {
		if err := a.clearState(ctx, t.userID); err != nil {
			return "", err
		}
		ok = false
	}
	if !ok {
		return a.route(ctx, t)
	}
	return a.continueFlow(ctx, t, st)
}

// route handles a message that is not part of a flow.
func (a *Agent) route(ctx context.Context, t turn) (string, error) {
	switch t.intent {
	case domain.IntentConfirmation:
		return confirmWithoutStateText, nil
	case domain.IntentBalance:
		return a.balance(ctx, t), nil
	case domain.IntentHistory, domain.IntentTransfersSent, domain.IntentPeopleSentMoney:
		return a.history(ctx, t), nil
	case domain.IntentTransfer, domain.IntentNamedTransferWithAccount:
		return a.directTransfer(ctx, t)
	case domain.IntentBeneficiaryTransfer:
		return a.beneficiaryTransfer(ctx, t)
	case domain.IntentAccountResolve:
		return a.resolveAccount(ctx, t.userID, t.entities), nil
	case domain.IntentAccountBankAmountTransfer:
		return a.prepareTransfer(ctx, t.userID, domain.KindAccountBankAmountPendingConfirmation, t.entities)
	case domain.IntentBanks:
		return a.banks(ctx), nil
	case domain.IntentNicknameCreation:
		return a.createNickname(ctx, t)
	case domain.IntentAddBeneficiary:
		return a.addBeneficiary(ctx, t), nil
	case domain.IntentListBeneficiaries:
		return a.listBeneficiaries(ctx, t), nil
	case domain.IntentBeneficiaryMention:
		return beneficiaryMenu, nil
	case domain.IntentConversation:
		if hasTransferContext(t) {
			return a.assembleTransfer(ctx, t)
		}
	}
	return a.converse(ctx, t), nil
}

func (a *Agent) setState(ctx context.Context, userID string, kind domain.StateKind, p domain.Payload) error {
	st, err := domain.NewState(kind, p, a.now())
	if err != nil {
		return newError(ErrorInternal, "state_build_error", err)
	}
	if err := a.state.SetState(ctx, userID, st); err != nil {
		return newError(ErrorInternal, "state_write_error", err)
	}
	return nil
}

func (a *Agent) clearState(ctx context.Context, userID string) error {
	if err := a.state.ClearState(ctx, userID); err != nil {
		return newError(ErrorInternal, "state_clear_error", err)
	}
	return nil
}

func (a *Agent) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[a.intn(len(options))]
}
