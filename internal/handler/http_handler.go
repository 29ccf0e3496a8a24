package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/repository"
	"github.com/pesio-ai/be-claims-evaluator/internal/service"
)

// ClaimEvaluator is the part of the claim service the transport needs.
type ClaimEvaluator interface {
	Submit(ctx context.Context, req service.SubmitClaimRequest) (*service.SubmitClaimResult, error)
	Checkpoints(ctx context.Context, claimID string) ([]*repository.Checkpoint, error)
}

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	claims ClaimEvaluator
	log    *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(claims ClaimEvaluator, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		claims: claims,
		log:    log.Component("http"),
	}
}

// Routes builds the router. timeout bounds each request; evaluations call a
// vision model per document, so it should be generous.
func (h *HTTPHandler) Routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1/claims", func(api chi.Router) {
		api.Post("/submit", h.SubmitClaim)
		api.Get("/checkpoints", h.ListCheckpoints)
	})
	return r
}

type submitClaimBody struct {
	ClaimID    string            `json:"claim_id"`
	PolicyID   string            `json:"policy_id"`
	FNOLData   *claim.Submission `json:"fnol_data"`
	Submission *claim.Submission `json:"submission"`
}

// SubmitClaim runs a claim through the evaluation pipeline. Rejections are
// successful evaluations and return 200.
func (h *HTTPHandler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var body submitClaimBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.ClaimID == "" {
		writeError(w, http.StatusBadRequest, "claim_id is required")
		return
	}

	submission := body.FNOLData
	if submission == nil {
		submission = body.Submission
	}

	result, err := h.claims.Submit(r.Context(), service.SubmitClaimRequest{
		ClaimID:    body.ClaimID,
		PolicyID:   body.PolicyID,
		Submission: submission,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.CodeOf(err) == errors.ErrCodeInvalidInput {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListCheckpoints returns the persisted stage history of a claim.
func (h *HTTPHandler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	claimID := r.URL.Query().Get("claim_id")
	if claimID == "" {
		writeError(w, http.StatusBadRequest, "claim_id is required")
		return
	}

	checkpoints, err := h.claims.Checkpoints(r.Context(), claimID)
	if err != nil {
		writeError(w, errors.HTTPStatus(err), err.Error())
		return
	}
	if checkpoints == nil {
		checkpoints = []*repository.Checkpoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id":    claimID,
		"checkpoints": checkpoints,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
