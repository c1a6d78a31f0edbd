// Package api exposes the honeypot's HTTP surface: the conversation
// endpoint plus read-only session and quota views.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/honeypot"
	"github.com/karanvs/scambait/internal/ratelimit"
	"github.com/karanvs/scambait/internal/server"
)

// HoneypotRequest is the POST /api/honeypot body.
type HoneypotRequest struct {
	SessionID           string           `json:"sessionId"`
	Message             *domain.Message  `json:"message"`
	ConversationHistory []domain.Message `json:"conversationHistory"`
	Metadata            *Metadata        `json:"metadata"`
}

// Metadata carries optional channel hints. Currently informational.
type Metadata struct {
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

// HoneypotResponse is the successful reply envelope.
type HoneypotResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// Handler serves the honeypot API.
type Handler struct {
	pipeline *honeypot.Pipeline
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(pipeline *honeypot.Pipeline, limiter *ratelimit.Limiter, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, limiter: limiter, logger: logger}
}

// Routes mounts the handler's endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/honeypot", h.HandleHoneypot)
	r.Get("/api/session/{sessionID}", h.HandleSessionInfo)
	r.Get("/api/rate-limit", h.HandleRateLimit)
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)
}

// HandleHoneypot runs one conversation turn.
func (h *Handler) HandleHoneypot(w http.ResponseWriter, r *http.Request) {
	caller := callerKey(r)

	decision := h.limiter.Admit(caller)
	quota := h.limiter.Remaining(caller)
	server.SetRateLimits(r.Context(), &server.RateLimitInfo{
		MinuteLimit:     quota.PerMinute,
		MinuteRemaining: quota.RemainingPerMinute,
		DayLimit:        quota.PerDay,
		DayRemaining:    quota.RemainingPerDay,
	})
	if !decision.Allowed {
		retry := int(decision.RetryAfter / time.Second)
		if retry < 1 {
			retry = 1
		}
		writeError(w, domain.ErrRateLimit(decision.Reason).WithRetryAfter(retry))
		return
	}

	req, apiErr := decodeRequest(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	reply := h.pipeline.Process(r.Context(), honeypot.Turn{
		SessionID: req.SessionID,
		Message:   *req.Message,
		History:   req.ConversationHistory,
	})

	writeJSON(w, http.StatusOK, HoneypotResponse{Status: "success", Reply: reply})
}

// decodeRequest parses and validates the honeypot body, naming the
// offending field on failure.
func decodeRequest(r *http.Request) (*HoneypotRequest, *domain.APIError) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		return nil, domain.ErrValidation("empty request body")
	}

	var req HoneypotRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, domain.ErrValidation("invalid JSON: " + err.Error())
	}
	if req.SessionID == "" {
		return nil, domain.ErrValidation("sessionId is required").WithField("sessionId")
	}
	if req.Message == nil {
		return nil, domain.ErrValidation("message is required").WithField("message")
	}
	if req.Message.Text == "" {
		return nil, domain.ErrValidation("message.text is required").WithField("message.text")
	}
	if req.Message.Sender == "" {
		req.Message.Sender = domain.SenderScammer
	}
	if req.Message.Timestamp.IsZero() {
		req.Message.Timestamp = time.Now()
	}
	return &req, nil
}

// SessionInfoResponse is the GET /api/session/{id} body.
type SessionInfoResponse struct {
	SessionID    string                    `json:"sessionId"`
	MessageCount int                       `json:"messageCount"`
	TurnCount    int                       `json:"turnCount"`
	ScamDetected bool                      `json:"scamDetected"`
	ScamType     domain.ScamType           `json:"scamType"`
	Confidence   float64                   `json:"confidence"`
	CallbackSent bool                      `json:"callbackSent"`
	Intelligence domain.IntelligenceBundle `json:"intelligence"`
	AgentNotes   []string                  `json:"agentNotes"`
}

// HandleSessionInfo returns a session snapshot.
func (h *Handler) HandleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.pipeline.Store().Get(sessionID)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			writeError(w, apiErr)
			return
		}
		writeError(w, domain.ErrServer("failed to load session"))
		return
	}

	writeJSON(w, http.StatusOK, SessionInfoResponse{
		SessionID:    snap.ID,
		MessageCount: len(snap.History),
		TurnCount:    snap.TurnCount,
		ScamDetected: snap.Verdict.Detected,
		ScamType:     snap.Verdict.Type,
		Confidence:   snap.Verdict.Confidence,
		CallbackSent: snap.CallbackSent,
		Intelligence: snap.Intel,
		AgentNotes:   snap.Notes,
	})
}

// RateLimitResponse is the GET /api/rate-limit body.
type RateLimitResponse struct {
	Limits struct {
		RequestsPerMinute int `json:"requestsPerMinute"`
		RequestsPerDay    int `json:"requestsPerDay"`
	} `json:"limits"`
	Remaining struct {
		PerMinute int `json:"perMinute"`
		PerDay    int `json:"perDay"`
	} `json:"remaining"`
}

// HandleRateLimit reports the caller's configured limits and remaining
// quota without consuming any of it.
func (h *Handler) HandleRateLimit(w http.ResponseWriter, r *http.Request) {
	q := h.limiter.Remaining(callerKey(r))

	var resp RateLimitResponse
	resp.Limits.RequestsPerMinute = q.PerMinute
	resp.Limits.RequestsPerDay = q.PerDay
	resp.Remaining.PerMinute = q.RemainingPerMinute
	resp.Remaining.PerDay = q.RemainingPerDay
	writeJSON(w, http.StatusOK, resp)
}

// HandleRoot identifies the service.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "scambait honeypot",
		"status":  "active",
	})
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// callerKey identifies the caller for rate limiting: the API key when
// present, otherwise the remote address.
func callerKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.RemoteAddr
}

type errorBody struct {
	Status string           `json:"status"`
	Error  *domain.APIError `json:"error"`
}

func writeError(w http.ResponseWriter, apiErr *domain.APIError) {
	if apiErr.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfterSeconds))
	}
	writeJSON(w, apiErr.HTTPStatusCode(), errorBody{Status: "error", Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
