package controller

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"sandplane/internal/catalog"
	"sandplane/internal/config"
	"sandplane/internal/controller/handlers"
	"sandplane/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "instances.json"))
	h := handlers.New(nil, catalog.Default(), nil, s)
	return New(":0", h, &config.Config{}, nil)
}

func TestRoutes_ProbesAreUnauthenticated(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}

func TestRoutes_InstancesRequireIdentity(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/images"},
		{http.MethodPost, "/instances"},
		{http.MethodGet, "/instances"},
		{http.MethodGet, "/instances/abc123"},
		{http.MethodPost, "/instances/abc123/stop"},
		{http.MethodDelete, "/instances/abc123"},
		{http.MethodPost, "/instances/abc123/session"},
		{http.MethodGet, "/system/stats"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without identity status = %d, want %d",
				tt.method, tt.path, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestRoutes_UnknownPath(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
