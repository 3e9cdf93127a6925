package notify

import (
	"context"
	"sync"
	"time"

	"chatbank-agent/internal/logger"
)

// Outbox keeps delivered messages in memory for local runs, where there is no
// messaging gateway to relay them.
type Outbox struct {
	log logger.Logger

	mu     sync.Mutex
	byUser map[string][]Message
}

func NewOutbox(log logger.Logger) *Outbox {
	return &Outbox{log: logger.OrNop(log), byUser: make(map[string][]Message)}
}

func (o *Outbox) Deliver(_ context.Context, userID, text string) error {
	o.mu.Lock()
	o.byUser[userID] = append(o.byUser[userID], Message{UserID: userID, Text: text, SentAt: time.Now().UTC()})
	o.mu.Unlock()
	o.log.Info("follow-up delivered", map[string]interface{}{"user_id": userID, "text": text})
	return nil
}

// Drain returns and forgets the messages queued for userID.
func (o *Outbox) Drain(userID string) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.byUser[userID]
	delete(o.byUser, userID)
	return msgs
}
