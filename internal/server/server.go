// Package server exposes the dialogue engine over plain HTTP for local
// development. It feeds requests through the same Lambda handler used in
// production.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatbank-agent/internal/integrations/notify"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/recipients"
)

const maxBodyBytes = 64 << 10

type Webhook interface {
	Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// Inbox hands out follow-ups queued for a user.
type Inbox interface {
	Drain(userID string) []notify.Message
}

type CacheStats interface {
	Stats(ctx context.Context) (recipients.Stats, error)
}

type Server struct {
	router  *chi.Mux
	webhook Webhook
	inbox   Inbox
	cache   CacheStats
	log     logger.Logger
}

type followUpResponse struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

type statsResponse struct {
	Active     int      `json:"active"`
	Expired    int      `json:"expired"`
	TTLMinutes int      `json:"ttl_minutes"`
	Users      []string `json:"users"`
}

func New(webhook Webhook, inbox Inbox, cache CacheStats, log logger.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-Id"},
		ExposedHeaders: []string{"X-Correlation-Id"},
		MaxAge:         300,
	}))

	s := &Server{
		router:  r,
		webhook: webhook,
		inbox:   inbox,
		cache:   cache,
		log:     logger.OrNop(log),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/webhook", s.handleWebhook)
	s.router.Get("/followups/{userID}", s.handleFollowUps)
	s.router.Get("/stats", s.handleStats)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	resp, err := s.webhook.Handle(r.Context(), toProxyRequest(r, body))
	if err != nil {
		s.log.Error("webhook handler failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

func (s *Server) handleFollowUps(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	msgs := s.inbox.Drain(userID)
	out := make([]followUpResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, followUpResponse{Text: m.Text, SentAt: m.SentAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cache.Stats(r.Context())
	if err != nil {
		s.log.Warn("recipient cache stats failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, http.StatusServiceUnavailable, "stats unavailable")
		return
	}
	users := st.Keys
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Active:     st.Active,
		Expired:    st.Expired,
		TTLMinutes: st.TTLMinutes,
		Users:      users,
	})
}

// toProxyRequest shapes an HTTP request the way API Gateway would deliver it.
func toProxyRequest(r *http.Request, body []byte) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ",")
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	return events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: middleware.GetReqID(r.Context()),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
