package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sandplane/pkg/api"

	"github.com/spf13/viper"
)

func TestStopCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/instances/4f5c1a2b3d4e/stop") {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.LifecycleResponse{
			ID:      "4f5c1a2b3d4e5f6a7b8c9d0e1f2a3b4c",
			ShortID: "4f5c1a2b3d4e",
			Status:  "stopped",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"stop", "4f5c1a2b3d4e"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "is stopped") {
		t.Errorf("expected stopped confirmation, got: %s", stdout.String())
	}
}

func TestRestartCommand_PrintsWarning(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.LifecycleResponse{
			ShortID: "4f5c1a2b3d4e",
			Status:  "running",
			Warning: "session renegotiation failed: timed out",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"restart", "4f5c1a2b3d4e"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Warning") {
		t.Errorf("expected warning in output, got: %s", output)
	}
}

func TestRemoveCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE method, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{
			Error: "instance not found",
			Code:  api.CodeNotFound,
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"remove", "deadbeef"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "not found") {
		t.Errorf("expected not found message, got: %s", stdout.String())
	}
}
