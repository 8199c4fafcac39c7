// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"sandplane/internal/catalog"
	"sandplane/internal/orchestrator"
	"sandplane/internal/store"
	"sandplane/internal/system"
	"sandplane/pkg/api"
)

// Orchestrator is the instance lifecycle surface the handlers call into.
type Orchestrator interface {
	Deploy(ctx context.Context, who orchestrator.Identity, imageKey string) (*orchestrator.Deployment, error)
	Manage(ctx context.Context, who orchestrator.Identity, ref string, action orchestrator.Action) (*orchestrator.ManageResult, error)
	RegenerateSession(ctx context.Context, who orchestrator.Identity, ref string) (string, error)
	Describe(ctx context.Context, who orchestrator.Identity, ref string) (*orchestrator.Details, error)
	List(ctx context.Context, who orchestrator.Identity) ([]store.Instance, error)
	ListAll(ctx context.Context, who orchestrator.Identity) (store.Table, error)
	Quota() int
}

// Sampler reads a host resource snapshot.
type Sampler interface {
	Sample(ctx context.Context) (system.Stats, error)
}

// StoreChecker is the readiness probe into the instance store.
type StoreChecker interface {
	Count() (int64, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	orch    Orchestrator
	catalog *catalog.Catalog
	sampler Sampler
	checker StoreChecker
}

// New creates a Handlers instance.
func New(orch Orchestrator, cat *catalog.Catalog, sampler Sampler, checker StoreChecker) *Handlers {
	return &Handlers{orch: orch, catalog: cat, sampler: sampler, checker: checker}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message, code string, status int) {
	h.respondJson(w, status, api.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// orchestratorError maps the orchestrator's error kinds onto HTTP statuses
// and stable machine-readable codes.
func (h *Handlers) orchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrQuotaExceeded):
		h.httpError(w, err.Error(), api.CodeQuotaExceeded, http.StatusConflict)
	case errors.Is(err, orchestrator.ErrUnknownImage):
		h.httpError(w, err.Error(), api.CodeUnknownImage, http.StatusBadRequest)
	case errors.Is(err, store.ErrAmbiguousRef):
		h.httpError(w, err.Error(), api.CodeAmbiguousRef, http.StatusBadRequest)
	case errors.Is(err, orchestrator.ErrPermissionDenied):
		h.httpError(w, err.Error(), api.CodePermissionDenied, http.StatusForbidden)
	case errors.Is(err, orchestrator.ErrNotFound):
		h.httpError(w, err.Error(), api.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, orchestrator.ErrAlreadyGone):
		h.httpError(w, err.Error(), api.CodeAlreadyGone, http.StatusNotFound)
	case errors.Is(err, orchestrator.ErrNotRunning):
		h.httpError(w, err.Error(), api.CodeNotRunning, http.StatusConflict)
	case errors.Is(err, orchestrator.ErrProvisionFailed):
		h.httpError(w, err.Error(), api.CodeProvisionFailed, http.StatusBadGateway)
	case errors.Is(err, orchestrator.ErrSessionFailed):
		h.httpError(w, err.Error(), api.CodeSessionFailed, http.StatusBadGateway)
	case errors.Is(err, orchestrator.ErrRuntime):
		h.httpError(w, err.Error(), api.CodeRuntimeError, http.StatusBadGateway)
	default:
		h.httpError(w, "internal error", "", http.StatusInternalServerError)
	}
}

// toInstanceResponse converts a stored record for API output. The owner is
// included only in admin-facing listings.
func toInstanceResponse(owner string, inst store.Instance) api.InstanceResponse {
	return api.InstanceResponse{
		ID:              inst.ID,
		ShortID:         inst.ShortID(),
		Owner:           owner,
		Image:           inst.Image,
		SessionEndpoint: inst.SessionEndpoint,
		Status:          string(inst.Status),
		CreatedAt:       inst.CreatedAt,
	}
}
