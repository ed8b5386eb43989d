package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/ports"
	"github.com/tradewise/trade-data-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ask     ports.AskService
	index   ports.SearchIndex
	rebuild ports.RebuildQueue
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(
	ask ports.AskService,
	index ports.SearchIndex,
	rebuild ports.RebuildQueue,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		ask:     ask,
		index:   index,
		rebuild: rebuild,
		metrics: m,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.askQuestion)
	mux.HandleFunc("/v1/index/rebuild", rt.triggerRebuild)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	stats := rt.index.Stats()
	status := "ok"
	code := http.StatusOK
	if !stats.Ready {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"index":  stats,
	})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id is required"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.ask.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("ask_failed",
			"request_id", requestIDFromContext(r.Context()),
			"session_id", req.SessionID,
			"status", status,
			"error", err,
		)
		if rt.metrics != nil {
			rt.metrics.RecordAskOutcome(serviceName, "error", 0, time.Since(start))
		}
		writeJSON(w, status, map[string]string{"error": publicErrorMessage(err, status)})
		return
	}

	if rt.metrics != nil {
		outcome := "answered"
		if answer.Redirected {
			outcome = "redirected"
		}
		rt.metrics.RecordAskOutcome(serviceName, outcome, len(answer.Sources), time.Since(start))
		rt.metrics.RecordProactive(serviceName, len(answer.Suggestions) > 0, len(answer.Suggestions))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) triggerRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.rebuild.PublishRebuildRequested(r.Context()); err != nil {
		rt.logger.Error("rebuild_publish_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rebuild could not be queued"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
