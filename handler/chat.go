package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfred-ratelimit/gateway/catalog"
	"github.com/alfred-ratelimit/gateway/config"
	"github.com/alfred-ratelimit/gateway/estimator"
	"github.com/alfred-ratelimit/gateway/limiter"
	gwmw "github.com/alfred-ratelimit/gateway/middleware"
	"github.com/alfred-ratelimit/gateway/observability"
)

// ChatMessage is the wire shape of one chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the OpenAI-compatible request body this
// gateway accepts.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// ChatHandler serves POST /v1/chat/completions: it estimates tokens,
// runs the admission decision, and returns a mocked completion — no
// model actually runs here, this is purely the rate-limiting front
// door a real inference backend would sit behind.
type ChatHandler struct {
	logger  zerolog.Logger
	cfg     *config.Config
	catalog *catalog.Catalog
	limiter *limiter.Limiter
	metrics *observability.Metrics
}

// NewChatHandler creates a new chat completions handler.
func NewChatHandler(logger zerolog.Logger, cfg *config.Config, cat *catalog.Catalog, l *limiter.Limiter, metrics *observability.Metrics) *ChatHandler {
	return &ChatHandler{logger: logger, cfg: cfg, catalog: cat, limiter: l, metrics: metrics}
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *ChatHandler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	apiKey := gwmw.GetAPIKey(r.Context())

	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
		return
	}

	quota, ok := h.catalog.Lookup(apiKey)
	if !ok {
		if h.cfg.DenyUnknownAPIKey {
			h.writeError(w, http.StatusUnauthorized, "unknown_api_key", "API key is not recognized.")
			return
		}
		h.metrics.UnknownAPIKeyTotal.Inc()
		h.writeMockResponse(w, req, estimator.EstimateInputTokens(toEstimatorMessages(req.Messages)), estimator.DefaultOutputTokens)
		return
	}

	inputTokens := estimator.EstimateInputTokens(toEstimatorMessages(req.Messages))
	outputTokens := estimator.DefaultOutputTokens

	decision, err := h.limiter.Admit(r.Context(), apiKey, quota, time.Now(), inputTokens, outputTokens)
	if err != nil {
		h.metrics.StoreErrorsTotal.Inc()
		h.logger.Error().Err(err).Str("api_key", apiKey).Msg("admission store error")
		if !h.cfg.FailOpenOnStoreError {
			h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Rate limit store unavailable.")
			return
		}
		decision.Allowed = true
		decision.Reason = limiter.Allowed
	}

	h.metrics.AdmissionsTotal.WithLabelValues(string(decision.Reason)).Inc()
	h.metrics.AdmissionDuration.WithLabelValues(string(decision.Reason)).Observe(time.Since(start).Seconds())
	if decision.Calibrated {
		h.metrics.CalibrationsTotal.Inc()
	}

	if !decision.Allowed {
		w.Header().Set("Retry-After", "60")
		h.writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", fmt.Sprintf("Rate limit exceeded: %s", decision.Reason))
		return
	}

	h.writeMockResponse(w, req, inputTokens, outputTokens)
}

func (h *ChatHandler) writeMockResponse(w http.ResponseWriter, req ChatCompletionRequest, inputTokens, outputTokens int) {
	now := time.Now()
	resp := chatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-%x", now.Unix()),
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Index: 0,
			Message: ChatMessage{
				Role:    "assistant",
				Content: "mock response",
			},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"type":    errType,
			"message": message,
		},
	})
}

func toEstimatorMessages(messages []ChatMessage) []estimator.Message {
	out := make([]estimator.Message, len(messages))
	for i, m := range messages {
		out[i] = estimator.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
