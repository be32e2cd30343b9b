package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/llm-lead-router/internal/core"
	"go.uber.org/zap"
)

// Processor runs an inbound event through the pipeline
type Processor interface {
	Process(ctx context.Context, ev core.InboundEvent) ([]*core.ClassificationRecord, error)
}

// WebhookSource receives inbound events over HTTP
type WebhookSource struct {
	processor      Processor
	logger         *zap.Logger
	listenAddr     string
	requestTimeout time.Duration
	maxBodyBytes   int64
	server         *http.Server
}

type webhookResponse struct {
	Records []*core.ClassificationRecord `json:"records"`
}

// NewWebhookSource creates a new webhook source
func NewWebhookSource(
	processor Processor,
	logger *zap.Logger,
	listenAddr string,
	requestTimeout time.Duration,
	maxBodyBytes int64,
) *WebhookSource {
	return &WebhookSource{
		processor:      processor,
		logger:         logger,
		listenAddr:     listenAddr,
		requestTimeout: requestTimeout,
		maxBodyBytes:   maxBodyBytes,
	}
}

// Routes returns the HTTP handler of the webhook
func (s *WebhookSource) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/webhook/messages", s.handleMessage)

	return r
}

func (s *WebhookSource) handleMessage(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}

	var ev core.InboundEvent
	if err := json.NewDecoder(body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid inbound event: %v", err))
		return
	}

	records, err := s.ProcessMessage(r.Context(), ev)
	if err != nil {
		s.logger.Error("Failed to process inbound event",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("wa_message_id", ev.Body.WAMessageID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	respondJSON(w, http.StatusOK, webhookResponse{Records: records})
}

// ProcessMessage hands ev to the pipeline
func (s *WebhookSource) ProcessMessage(ctx context.Context, ev core.InboundEvent) ([]*core.ClassificationRecord, error) {
	return s.processor.Process(ctx, ev)
}

// Start starts the HTTP server
func (s *WebhookSource) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	s.server = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Webhook source starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Webhook server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *WebhookSource) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
