package twophase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/observability"
)

// DeliverFunc sends an out-of-band message to a user.
type DeliverFunc func(ctx context.Context, userID, text string) error

// Unit is one slow operation answered in two phases: a filler line now, and
// the result (or Apology) later through DeliverFunc.
type Unit struct {
	// Kind labels the unit in logs and metrics, e.g. "balance".
	Kind    string
	Fillers []string
	Apology string
	Work    func(ctx context.Context) (string, error)
}

// Orchestrator runs Units on detached goroutines. Every started unit calls
// DeliverFunc exactly once, whether Work returns, fails or panics. Units are
// not ordered against each other and cannot be cancelled by the caller.
type Orchestrator struct {
	deliver DeliverFunc
	log     logger.Logger
	metrics *observability.Metrics
	intn    func(n int) int

	wg sync.WaitGroup
}

type Option func(*Orchestrator)

func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func WithMetrics(m *observability.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithIntn replaces the filler picker; tests pass a fixed one.
func WithIntn(f func(n int) int) Option { return func(o *Orchestrator) { o.intn = f } }

func New(deliver DeliverFunc, opts ...Option) (*Orchestrator, error) {
	if deliver == nil {
		return nil, errors.New("twophase: deliver func must not be nil")
	}
	o := &Orchestrator{deliver: deliver, intn: rand.IntN}
	for _, opt := range opts {
		opt(o)
	}
	o.log = logger.OrNop(o.log)
	return o, nil
}

// Respond starts u in the background and returns the filler to send now.
func (o *Orchestrator) Respond(ctx context.Context, userID string, u Unit) string {
	filler := o.pick(u.Fillers)
	o.start(ctx, userID, u)
	return filler
}

// Send delivers text out of band without a filler, e.g. a receipt after a
// transfer reply.
func (o *Orchestrator) Send(ctx context.Context, userID, kind, text string) {
	o.start(ctx, userID, Unit{
		Kind:    kind,
		Apology: text,
		Work:    func(context.Context) (string, error) { return text, nil },
	})
}

// Wait blocks until every started unit has delivered. It exists for tests and
// graceful shutdown.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) start(ctx context.Context, userID string, u Unit) {
	o.wg.Add(1)
	go o.run(context.WithoutCancel(ctx), userID, u)
}

func (o *Orchestrator) pick(fillers []string) string {
	if len(fillers) == 0 {
		return ""
	}
	return fillers[o.intn(len(fillers))]
}

func (o *Orchestrator) run(ctx context.Context, userID string, u Unit) {
	defer o.wg.Done()

	text := u.Apology
	outcome := "apology"
	log := o.log.WithFields(map[string]interface{}{"user_id": userID, "kind": u.Kind})

	defer func() {
		if r := recover(); r != nil {
			log.Error("background unit panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			text = u.Apology
			outcome = "panic"
		}
		if err := o.safeDeliver(ctx, userID, text); err != nil {
			log.Error("follow-up delivery failed", map[string]interface{}{"error": err.Error()})
			outcome = "deliver_failed"
		}
		o.metrics.FollowUpDelivered(ctx, u.Kind, outcome)
	}()

	if u.Work == nil {
		return
	}
	result, err := u.Work(ctx)
	if err != nil {
		log.Warn("background unit failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if result != "" {
		text = result
		outcome = "ok"
	}
}

func (o *Orchestrator) safeDeliver(ctx context.Context, userID, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("twophase: deliver panicked: %v", r)
		}
	}()
	return o.deliver(ctx, userID, text)
}
