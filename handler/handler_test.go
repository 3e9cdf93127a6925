package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/usecase"
)

type stubUseCase struct {
	out usecase.MessageOutput
	err error
	in  usecase.MessageInput
}

func (s *stubUseCase) HandleMessage(_ context.Context, in usecase.MessageInput) (usecase.MessageOutput, error) {
	s.in = in
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/webhook",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.MessageOutput{Reply: "Let me check your balance real quick! 💰", Intent: domain.IntentBalance}}
	h, err := NewHandler(uc, WithLogger(logger.NewTestLogger(t)))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"user_id":"2348012345678","message":"what's my balance"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.MessageInput{UserID: "2348012345678", Text: "what's my balance"}, uc.in)

	out := parseBody[messageResponse](t, resp.Body)
	require.Equal(t, "Let me check your balance real quick! 💰", out.Reply)
	require.Equal(t, "balance", out.Intent)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubUseCase{out: usecase.MessageOutput{Reply: "ok"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"user_id":"u1","message":"hi"}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hi", uc.in.Text)
}

func TestHandle_InvalidBody(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorValidation), out.Error)
	require.Empty(t, uc.in.UserID)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "validation", err: &usecase.Error{Code: usecase.ErrorValidation, Reason: "empty_message"}, status: http.StatusBadRequest, code: string(usecase.ErrorValidation)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "payments_balance_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "state_write_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"user_id":"u1","message":"hi"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.MessageOutput{Reply: "ok"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(`{"user_id":"u1","message":"hi"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
