// Package app assembles the dialogue engine from configuration. It is shared
// by the Lambda entry point and the local dev server, which differ only in
// how follow-up messages leave the process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chatbank-agent/handler"
	"chatbank-agent/internal/config"
	"chatbank-agent/internal/integrations/openai"
	"chatbank-agent/internal/integrations/paramstore"
	"chatbank-agent/internal/integrations/payments"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/observability"
	"chatbank-agent/internal/recipients"
	"chatbank-agent/internal/repository"
	"chatbank-agent/internal/twophase"
	"chatbank-agent/internal/usecase"
)

const (
	serviceName = "chatbank-agent"

	paymentsKeyParam = "payments-secret-key"
	openAIKeyParam   = "openai-api-key"
)

// store is everything the engine persists itself.
type store interface {
	usecase.StateStore
	usecase.LocalStore
	recipients.Source
}

type App struct {
	Handler    *handler.Handler
	Agent      *usecase.Agent
	FollowUps  *twophase.Orchestrator
	Recipients *recipients.Cache
	Metrics    *observability.Metrics
	Log        logger.Logger
}

// Deps carries what the caller builds itself. Log and Metrics are created
// from cfg when nil.
type Deps struct {
	AWS     aws.Config
	Deliver twophase.DeliverFunc
	Log     logger.Logger
	Metrics *observability.Metrics
}

func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if deps.Deliver == nil {
		return nil, errors.New("app: deliver func must not be nil")
	}

	log := deps.Log
	if log == nil {
		var err error
		if log, err = logger.NewStructured(cfg.Log.Level, cfg.Log.Format); err != nil {
			return nil, fmt.Errorf("app: logger: %w", err)
		}
	}
	metrics := deps.Metrics
	if metrics == nil {
		var err error
		if metrics, err = observability.New(serviceName); err != nil {
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
	}

	// ---- Secrets ----
	var params paramstore.Getter
	if cfg.Param.Prefix != "" {
		c, err := paramstore.New(awsssm.NewFromConfig(deps.AWS))
		if err != nil {
			return nil, fmt.Errorf("app: ssm client: %w", err)
		}
		params = c
	}
	paymentsKey, err := tokenSource(params, cfg.Param.Prefix, paymentsKeyParam, cfg.Payments.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("app: payments key: %w", err)
	}

	// ---- Clients ----
	pay, err := payments.NewClient(paymentsKey,
		payments.WithBaseURL(cfg.Payments.BaseURL),
		payments.WithHTTPClient(&http.Client{Timeout: cfg.Payments.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: payments client: %w", err)
	}

	st, err := newStore(ctx, cfg, deps.AWS)
	if err != nil {
		return nil, err
	}

	entries, err := newEntryStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cache, err := recipients.New(st, pay,
		recipients.WithTTL(cfg.Cache.TTL),
		recipients.WithStore(entries),
		recipients.WithLogger(log),
		recipients.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("app: recipient cache: %w", err)
	}

	orch, err := twophase.New(deps.Deliver, twophase.WithLogger(log), twophase.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("app: orchestrator: %w", err)
	}

	// ---- Use case ----
	opts := []usecase.Option{usecase.WithLogger(log), usecase.WithMetrics(metrics)}
	if cfg.OpenAI.Enabled {
		key, err := tokenSource(params, cfg.Param.Prefix, openAIKeyParam, cfg.OpenAI.APIKey)
		if err != nil {
			return nil, fmt.Errorf("app: openai key: %w", err)
		}
		llm, err := openai.NewClient(key, cfg.OpenAI.Model, openai.WithTimeout(cfg.OpenAI.Timeout))
		if err != nil {
			return nil, fmt.Errorf("app: openai client: %w", err)
		}
		opts = append(opts, usecase.WithLLM(llm), usecase.WithLLMTimeout(cfg.OpenAI.Timeout))
	}
	agent, err := usecase.New(st, pay, cache, st, orch, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: agent: %w", err)
	}

	h, err := handler.NewHandler(agent, handler.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("app: handler: %w", err)
	}

	log.Info("dialogue engine ready", map[string]interface{}{
		"state_backend": cfg.State.Backend,
		"cache_backend": cfg.Cache.Backend,
		"llm":           cfg.OpenAI.Enabled,
	})
	return &App{Handler: h, Agent: agent, FollowUps: orch, Recipients: cache, Metrics: metrics, Log: log}, nil
}

// Close waits for in-flight follow-ups and flushes metrics.
func (a *App) Close(ctx context.Context) error {
	a.FollowUps.Wait()
	return a.Metrics.Shutdown(ctx)
}

// tokenSource prefers a key given in configuration and falls back to the
// SSM parameter name under prefix.
func tokenSource(params paramstore.Getter, prefix, name, direct string) (*paramstore.TokenSource, error) {
	if direct != "" {
		return paramstore.StaticToken(direct), nil
	}
	if params == nil {
		return nil, errors.New("no key configured and no parameter prefix set")
	}
	return paramstore.NewTokenSource(params, paramstore.Join(prefix, name))
}

func newStore(_ context.Context, cfg *config.Config, awsCfg aws.Config) (store, error) {
	switch cfg.State.Backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(nil), nil
	case config.BackendDynamoDB:
		c, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.State.Table)
		if err != nil {
			return nil, fmt.Errorf("app: dynamodb repository: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("app: unknown state backend %q", cfg.State.Backend)
}

func newEntryStore(ctx context.Context, cfg *config.Config) (recipients.EntryStore, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return recipients.NewMemoryStore(), nil
	case config.BackendRedis:
		rdb := recipients.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("app: redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return recipients.NewRedisStore(rdb)
	}
	return nil, fmt.Errorf("app: unknown cache backend %q", cfg.Cache.Backend)
}
