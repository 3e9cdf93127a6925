package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// MessageHandler is the use case behind the webhook. usecase.Agent
// implements it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in usecase.MessageInput) (usecase.MessageOutput, error)
}

type messageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type messageResponse struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler adapts API Gateway proxy events to the dialogue engine. Every
// message gets exactly one synchronous reply; follow-ups travel separately.
type Handler struct {
	uc  MessageHandler
	log logger.Logger
}

type Option func(*Handler)

func WithLogger(l logger.Logger) Option { return func(h *Handler) { h.log = l } }

func NewHandler(uc MessageHandler, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc}
	for _, opt := range opts {
		opt(h)
	}
	h.log = logger.OrNop(h.log)
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	log := h.log.WithFields(map[string]interface{}{"correlation_id": corrID})

	body, err := requestBody(req)
	if err != nil {
		log.Warn("undecodable request body", map[string]interface{}{"error": err.Error()})
		return respond(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorValidation)}), nil
	}
	var in messageRequest
	if err := json.Unmarshal(body, &in); err != nil {
		log.Warn("invalid request body", map[string]interface{}{"error": err.Error()})
		return respond(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorValidation)}), nil
	}

	out, err := h.uc.HandleMessage(ctx, usecase.MessageInput{UserID: in.UserID, Text: in.Message})
	if err != nil {
		status, code := classify(err)
		fields := map[string]interface{}{"error": err.Error(), "status": status}
		if status >= http.StatusInternalServerError {
			log.Error("message handling failed", fields)
		} else {
			log.Info("message rejected", fields)
		}
		return respond(status, corrID, errorResponse{Error: string(code)}), nil
	}

	return respond(http.StatusOK, corrID, messageResponse{Reply: out.Reply, Intent: string(out.Intent)}), nil
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

func classify(err error) (int, usecase.ErrorCode) {
	var uerr *usecase.Error
	if !errors.As(err, &uerr) {
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
	switch uerr.Code {
	case usecase.ErrorValidation:
		return http.StatusBadRequest, uerr.Code
	case usecase.ErrorUpstream, usecase.ErrorResolution:
		return http.StatusBadGateway, uerr.Code
	}
	return http.StatusInternalServerError, uerr.Code
}

// correlationID returns the caller's X-Correlation-Id, matched without regard
// to case, or a fresh one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

func respond(status int, corrID string, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}
