package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// tokenPayload is the JSON shape stored in SSM for API tokens.
type tokenPayload struct {
	Token string `json:"token"`
}

// TokenSource yields an API token, either fixed at construction or read from
// SSM on first use. A successful read is reused for the process lifetime; a
// failed one is retried on the next call.
type TokenSource struct {
	getter Getter
	name   string

	mu    sync.Mutex
	token string
}

// StaticToken returns a source that always yields token.
func StaticToken(token string) *TokenSource {
	return &TokenSource{token: strings.TrimSpace(token)}
}

// NewTokenSource reads the JSON {"token": "..."} parameter called name.
func NewTokenSource(getter Getter, name string) (*TokenSource, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: token parameter name is empty")
	}
	return &TokenSource{getter: getter, name: name}, nil
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	if s.getter == nil {
		return "", errors.New("paramstore: API token is empty")
	}

	raw, err := s.getter.GetParameter(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch token: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("paramstore: API token in %q is empty", s.name)
	}
	s.token = tp.Token
	return s.token, nil
}
