package handlers

import (
	"encoding/json"
	"net/http"

	"sandplane/internal/controller/middleware"
	"sandplane/internal/orchestrator"
	"sandplane/pkg/api"
)

// ListImages handles GET /images.
// The catalog is the deploy namespace: only listed keys can be deployed.
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	resp := api.ListImagesResponse{Images: make([]api.ImageInfo, 0, h.catalog.Len())}
	for _, key := range h.catalog.Keys() {
		img, _ := h.catalog.Get(key)
		resp.Images = append(resp.Images, api.ImageInfo{
			Key:         key,
			DisplayName: img.DisplayName,
			Description: img.Description,
			RAM:         img.RAM,
			CPU:         img.CPU,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// Deploy handles POST /instances.
// It provisions a container for the requester and negotiates its session.
func (h *Handlers) Deploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	who, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		h.httpError(w, "unauthorized", "", http.StatusUnauthorized)
		return
	}

	var req api.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "invalid request body", "", http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		h.httpError(w, "image is required", "", http.StatusBadRequest)
		return
	}

	dep, err := h.orch.Deploy(ctx, who, req.Image)
	if err != nil {
		h.orchestratorError(w, err)
		return
	}

	h.respondJson(w, http.StatusCreated, api.DeployResponse{
		ID:              dep.Instance.ID,
		ShortID:         dep.Instance.ShortID(),
		Image:           dep.Instance.Image,
		SessionEndpoint: dep.Instance.SessionEndpoint,
		CreatedAt:       dep.Instance.CreatedAt,
	})
}

// ListInstances handles GET /instances.
func (h *Handlers) ListInstances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	who, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		h.httpError(w, "unauthorized", "", http.StatusUnauthorized)
		return
	}

	instances, err := h.orch.List(ctx, who)
	if err != nil {
		h.orchestratorError(w, err)
		return
	}

	resp := api.ListInstancesResponse{
		Instances: make([]api.InstanceResponse, 0, len(instances)),
		Quota:     h.orch.Quota(),
	}
	for _, inst := range instances {
		resp.Instances = append(resp.Instances, toInstanceResponse("", inst))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ListAllInstances handles GET /instances/all. Admin only.
func (h *Handlers) ListAllInstances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	who, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		h.httpError(w, "unauthorized", "", http.StatusUnauthorized)
		return
	}

	table, err := h.orch.ListAll(ctx, who)
	if err != nil {
		h.orchestratorError(w, err)
		return
	}

	resp := api.ListAllInstancesResponse{Owners: make(map[string][]api.InstanceResponse, len(table))}
	for owner, instances := range table {
		for _, inst := range instances {
			resp.Owners[owner] = append(resp.Owners[owner], toInstanceResponse(owner, inst))
			resp.Total++
		}
	}
	h.respondJson(w, http.StatusOK, resp)
}

// DescribeInstance handles GET /instances/{id}.
// The response merges the stored record with a live stats reading.
func (h *Handlers) DescribeInstance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	who, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		h.httpError(w, "unauthorized", "", http.StatusUnauthorized)
		return
	}

	details, err := h.orch.Describe(ctx, who, r.PathValue("id"))
	if err != nil {
		h.orchestratorError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.DescribeResponse{
		Instance: toInstanceResponse(details.Owner, details.Instance),
		Stats: api.InstanceStats{
			CPUPercent:    details.Stats.CPUPercent,
			MemUsedBytes:  details.Stats.MemUsedBytes,
			MemLimitBytes: details.Stats.MemLimitBytes,
			MemPercent:    details.Stats.MemPercent(),
			Running:       details.Stats.Running,
		},
	})
}

// StartInstance handles POST /instances/{id}/start.
func (h *Handlers) StartInstance(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, orchestrator.ActionStart)
}

// StopInstance handles POST /instances/{id}/stop.
func (h *Handlers) StopInstance(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, orchestrator.ActionStop)
}

// RestartInstance handles POST /instances/{id}/restart.
func (h *Handlers) RestartInstance(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, orchestrator.ActionRestart)
}

// RemoveInstance handles DELETE /instances/{id}.
func (h *Handlers) RemoveInstance(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, orchestrator.ActionRemove)
}

func (h *Handlers) lifecycle(w http.ResponseWriter, r *http.Request, action orchestrator.Action) {
	ctx := r.Context()

	who, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		h.httpError(w, "unauthorized", "", http.StatusUnauthorized)
		return
	}

	res, err := h.orch.Manage(ctx, who, r.PathValue("id"), action)
	if err != nil {
		h.orchestratorError(w, err)
		return
	}

	resp := api.LifecycleResponse{
		ID:      res.Instance.ID,
		ShortID: res.Instance.ShortID(),
		Warning: res.Warning,
	}
	if action != orchestrator.ActionRemove {
		resp.Status = string(res.Instance.Status)
	}
	h.respondJson(w, http.StatusOK, resp)
}

// RegenerateSession handles POST /instances/{id}/session.
func (h *Handlers) RegenerateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	who, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		h.httpError(w, "unauthorized", "", http.StatusUnauthorized)
		return
	}

	ref := r.PathValue("id")
	endpoint, err := h.orch.RegenerateSession(ctx, who, ref)
	if err != nil {
		h.orchestratorError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.RegenerateSessionResponse{
		ID:              ref,
		SessionEndpoint: endpoint,
	})
}
