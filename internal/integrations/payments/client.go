package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chatbank-agent/internal/domain"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 10 * time.Second
	currencyNGN    = "NGN"
	pageSize       = 50
	maxGetRetries  = 2
)

// tokenProvider yields the secret key. *paramstore.TokenSource satisfies it.
type tokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("payments: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ErrRejected is returned when the provider answers 2xx with status=false.
var ErrRejected = errors.New("payments: request rejected")

// envelope is the wrapper every provider response comes in.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to a Paystack-compatible payments API. Amounts cross this
// boundary in kobo.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenProvider
	backoff    func(attempt int) time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBackoff overrides the wait before retrying a failed GET.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = f
	}
}

func NewClient(tokens tokenProvider, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("payments: token provider must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		backoff:    func(attempt int) time.Duration { return time.Duration(1<<attempt) * 250 * time.Millisecond },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c, nil
}

// ---- accounts and banks ----

type resolveData struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ResolveAccount looks up the holder name of an account at a bank.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (domain.AccountInfo, error) {
	if accountNumber == "" || bankCode == "" {
		return domain.AccountInfo{}, errors.New("payments: ResolveAccount: account number and bank code are required")
	}
	q := url.Values{"account_number": {accountNumber}, "bank_code": {bankCode}}
	var data resolveData
	if err := c.get(ctx, "/bank/resolve", q, &data); err != nil {
		return domain.AccountInfo{}, fmt.Errorf("payments: ResolveAccount: %w", err)
	}
	if data.AccountName == "" {
		return domain.AccountInfo{}, fmt.Errorf("payments: ResolveAccount: %w: empty account name", ErrRejected)
	}
	if data.AccountNumber == "" {
		data.AccountNumber = accountNumber
	}
	return domain.AccountInfo{AccountName: data.AccountName, AccountNumber: data.AccountNumber}, nil
}

func (c *Client) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	var data []domain.Bank
	if err := c.get(ctx, "/bank", url.Values{"currency": {currencyNGN}}, &data); err != nil {
		return nil, fmt.Errorf("payments: ListBanks: %w", err)
	}
	return data, nil
}

func (c *Client) GetBalance(ctx context.Context) ([]domain.Balance, error) {
	var data []domain.Balance
	if err := c.get(ctx, "/balance", nil, &data); err != nil {
		return nil, fmt.Errorf("payments: GetBalance: %w", err)
	}
	return data, nil
}

// ---- recipients ----

type recipientDetails struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
}

type recipientData struct {
	RecipientCode string           `json:"recipient_code"`
	Name          string           `json:"name"`
	Details       recipientDetails `json:"details"`
}

func (r recipientData) toDomain() domain.Recipient {
	name := r.Details.AccountName
	if name == "" {
		name = r.Name
	}
	return domain.Recipient{
		AccountName:   name,
		AccountNumber: r.Details.AccountNumber,
		BankCode:      r.Details.BankCode,
		BankName:      r.Details.BankName,
		RecipientCode: r.RecipientCode,
		Source:        domain.SourceExternal,
	}
}

// CreateRecipient registers a NUBAN recipient and returns its code.
func (c *Client) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	body := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       currencyNGN,
	}
	var data recipientData
	if err := c.post(ctx, "/transferrecipient", body, &data); err != nil {
		return "", fmt.Errorf("payments: CreateRecipient: %w", err)
	}
	if data.RecipientCode == "" {
		return "", fmt.Errorf("payments: CreateRecipient: %w: no recipient code", ErrRejected)
	}
	return data.RecipientCode, nil
}

// ListRecipients returns the recipients registered with the provider. The
// provider keeps one list per business, so userID does not narrow it.
func (c *Client) ListRecipients(ctx context.Context, _ string) ([]domain.Recipient, error) {
	q := url.Values{"perPage": {strconv.Itoa(pageSize)}, "page": {"1"}}
	var data []recipientData
	if err := c.get(ctx, "/transferrecipient", q, &data); err != nil {
		return nil, fmt.Errorf("payments: ListRecipients: %w", err)
	}
	out := make([]domain.Recipient, 0, len(data))
	for _, r := range data {
		if r.Details.AccountNumber == "" {
			continue
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// ---- transfers ----

type transferData struct {
	Reference    string        `json:"reference"`
	Amount       int64         `json:"amount"`
	Status       string        `json:"status"`
	TransferCode string        `json:"transfer_code"`
	CreatedAt    time.Time     `json:"createdAt"`
	Recipient    recipientData `json:"recipient"`
}

// InitiateTransfer pays amountKobo from the balance to recipientCode. It is
// never retried: a repeated POST could move money twice.
func (c *Client) InitiateTransfer(ctx context.Context, amountKobo int64, recipientCode, reference, reason string) (domain.TransferResult, error) {
	if amountKobo <= 0 {
		return domain.TransferResult{}, errors.New("payments: InitiateTransfer: amount must be positive")
	}
	if recipientCode == "" {
		return domain.TransferResult{}, errors.New("payments: InitiateTransfer: recipient code is required")
	}
	body := map[string]any{
		"source":    "balance",
		"amount":    amountKobo,
		"recipient": recipientCode,
		"reason":    reason,
		"currency":  currencyNGN,
		"reference": reference,
	}
	var data transferData
	if err := c.post(ctx, "/transfer", body, &data); err != nil {
		return domain.TransferResult{}, fmt.Errorf("payments: InitiateTransfer: %w", err)
	}
	if data.Reference == "" {
		data.Reference = reference
	}
	return domain.TransferResult{Reference: data.Reference, Status: data.Status, TransferCode: data.TransferCode}, nil
}

// ListTransfers returns transfers created in [from, to).
func (c *Client) ListTransfers(ctx context.Context, from, to time.Time) ([]domain.Transfer, error) {
	q := url.Values{
		"perPage": {strconv.Itoa(pageSize)},
		"page":    {"1"},
		"from":    {from.UTC().Format(time.RFC3339)},
		"to":      {to.UTC().Format(time.RFC3339)},
	}
	var data []transferData
	if err := c.get(ctx, "/transfer", q, &data); err != nil {
		return nil, fmt.Errorf("payments: ListTransfers: %w", err)
	}
	out := make([]domain.Transfer, 0, len(data))
	for _, t := range data {
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		r := t.Recipient.toDomain()
		out = append(out, domain.Transfer{
			Reference:     t.Reference,
			AmountMinor:   t.Amount,
			RecipientName: r.AccountName,
			AccountNumber: r.AccountNumber,
			BankCode:      r.BankCode,
			BankName:      r.BankName,
			Status:        t.Status,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out, nil
}

// ---- transport ----

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var lastErr error
	for attempt := 0; attempt <= maxGetRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
		lastErr = c.do(ctx, http.MethodGet, u, nil, out)
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, raw, out)
}

// retryable reports whether a GET failure is worth another attempt: server
// errors and transport failures, but not 4xx answers.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return !errors.Is(err, ErrRejected)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, out any) error {
	key, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve secret key: %w", err)
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.doJSONRequest(req, u)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, u string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := string(buf)
		var env envelope
		if json.Unmarshal(buf, &env) == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: req.URL.Path, Message: msg}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body from %s: %w", u, err)
	}
	return buf, nil
}
