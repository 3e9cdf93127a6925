package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StateTTL is how long a multi-step flow stays live after it was created.
const StateTTL = 30 * time.Minute

// StateKind tags the step a user is at in a multi-step flow.
type StateKind string

const (
	KindTransferPendingConfirmation          StateKind = "transfer_pending_confirmation"
	KindDirectTransferPendingConfirmation    StateKind = "direct_transfer_pending_confirmation"
	KindBeneficiaryTransferPendingConfirm    StateKind = "beneficiary_transfer_pending_confirmation"
	KindAccountBankAmountPendingConfirmation StateKind = "account_bank_amount_transfer_pending_confirmation"

	KindBeneficiaryTransferPendingAmount StateKind = "beneficiary_transfer_pending_amount"
	KindAccountResolutionPendingAmount   StateKind = "account_resolution_pending_amount"
	KindAccountResolvedPendingAmount     StateKind = "account_resolved_pending_amount"

	KindAccountIdentified      StateKind = "account_identified"
	KindTransferMissingBank    StateKind = "transfer_missing_bank"
	KindTransferMissingAccount StateKind = "transfer_missing_account"
)

// AwaitingConfirmation reports whether the kind waits for a yes/no answer.
func (k StateKind) AwaitingConfirmation() bool {
	switch k {
	case KindTransferPendingConfirmation,
		KindDirectTransferPendingConfirmation,
		KindBeneficiaryTransferPendingConfirm,
		KindAccountBankAmountPendingConfirmation:
		return true
	}
	return false
}

// AwaitingAmount reports whether the kind waits for an amount.
func (k StateKind) AwaitingAmount() bool {
	switch k {
	case KindBeneficiaryTransferPendingAmount,
		KindAccountResolutionPendingAmount,
		KindAccountResolvedPendingAmount:
		return true
	}
	return false
}

// Payload is the per-kind data of a State. Only the variants below implement
// it.
type Payload interface {
	isPayload()
}

// TransferDraft is what is known so far about a transfer being assembled.
type TransferDraft struct {
	Amount        int64  `json:"amount,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	RecipientCode string `json:"recipient_code,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
}

// PendingConfirmation is carried by every *_pending_confirmation kind.
type PendingConfirmation struct {
	TransferDraft
}

// PendingAmount is carried by every *_pending_amount kind.
type PendingAmount struct {
	TransferDraft
}

// AccountIdentified remembers an account the user mentioned without saying
// what to do with it.
type AccountIdentified struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
}

// MissingBank waits for the bank of an account that already has an amount.
type MissingBank struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
}

// MissingAccount waits for the account number at a known bank.
type MissingAccount struct {
	BankName string `json:"bank_name"`
	BankCode string `json:"bank_code,omitempty"`
	Amount   int64  `json:"amount"`
}

func (PendingConfirmation) isPayload() {}
func (PendingAmount) isPayload()       {}
func (AccountIdentified) isPayload()   {}
func (MissingBank) isPayload()         {}
func (MissingAccount) isPayload()      {}

// State is the single live multi-step flow of a user.
type State struct {
	Kind      StateKind
	Payload   Payload
	CreatedAt time.Time
	// ExpiresAt overrides CreatedAt+StateTTL when set.
	ExpiresAt time.Time
}

var ErrPayloadMismatch = errors.New("domain: payload does not match state kind")

// NewState builds a State, rejecting payloads that do not belong to kind.
func NewState(kind StateKind, payload Payload, now time.Time) (State, error) {
	if _, err := newPayload(kind); err != nil {
		return State{}, err
	}
	if !payloadMatches(kind, payload) {
		return State{}, fmt.Errorf("%w: %s carries %T", ErrPayloadMismatch, kind, payload)
	}
	return State{Kind: kind, Payload: payload, CreatedAt: now.UTC()}, nil
}

// Expired reports whether the state is no longer live at now.
func (s State) Expired(now time.Time) bool {
	if !s.ExpiresAt.IsZero() {
		return now.After(s.ExpiresAt)
	}
	return now.Sub(s.CreatedAt) > StateTTL
}

// Draft returns the transfer draft of confirmation and amount states.
func (s State) Draft() (TransferDraft, bool) {
	switch p := s.Payload.(type) {
	case PendingConfirmation:
		return p.TransferDraft, true
	case PendingAmount:
		return p.TransferDraft, true
	}
	return TransferDraft{}, false
}

func newPayload(kind StateKind) (any, error) {
	switch {
	case kind.AwaitingConfirmation():
		return &PendingConfirmation{}, nil
	case kind.AwaitingAmount():
		return &PendingAmount{}, nil
	}
	switch kind {
	case KindAccountIdentified:
		return &AccountIdentified{}, nil
	case KindTransferMissingBank:
		return &MissingBank{}, nil
	case KindTransferMissingAccount:
		return &MissingAccount{}, nil
	}
	return nil, fmt.Errorf("domain: unknown state kind %q", kind)
}

func payloadMatches(kind StateKind, p Payload) bool {
	switch p.(type) {
	case PendingConfirmation:
		return kind.AwaitingConfirmation()
	case PendingAmount:
		return kind.AwaitingAmount()
	case AccountIdentified:
		return kind == KindAccountIdentified
	case MissingBank:
		return kind == KindTransferMissingBank
	case MissingAccount:
		return kind == KindTransferMissingAccount
	}
	return false
}

func derefPayload(p any) Payload {
	switch v := p.(type) {
	case *PendingConfirmation:
		return *v
	case *PendingAmount:
		return *v
	case *AccountIdentified:
		return *v
	case *MissingBank:
		return *v
	case *MissingAccount:
		return *v
	}
	return nil
}

type stateRecord struct {
	Kind      StateKind       `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func (s State) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("domain: marshal payload: %w", err)
	}
	rec := stateRecord{Kind: s.Kind, CreatedAt: s.CreatedAt, Payload: raw}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		rec.ExpiresAt = &exp
	}
	return json.Marshal(rec)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("domain: unmarshal state: %w", err)
	}
	target, err := newPayload(rec.Kind)
	if err != nil {
		return err
	}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, target); err != nil {
			return fmt.Errorf("domain: unmarshal %s payload: %w", rec.Kind, err)
		}
	}
	s.Kind = rec.Kind
	s.Payload = derefPayload(target)
	s.CreatedAt = rec.CreatedAt
	s.ExpiresAt = time.Time{}
	if rec.ExpiresAt != nil {
		s.ExpiresAt = *rec.ExpiresAt
	}
	return nil
}
