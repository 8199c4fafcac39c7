package handlers

import "net/http"

// Healthz handles GET /healthz. Liveness only.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. Ready means the instance store is readable.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checker.Count(); err != nil {
		h.httpError(w, "store not readable", "", http.StatusServiceUnavailable)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "ready"})
}
