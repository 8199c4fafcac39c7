package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sandplane/pkg/api"
)

// InstanceClient handles API calls to the sandplane controller.
type InstanceClient struct {
	BaseURL    string
	User       string
	AdminToken string
	HTTPClient *http.Client
}

// NewInstanceClient creates a client for the given endpoint and identity.
func NewInstanceClient(baseURL, user, adminToken string) *InstanceClient {
	return &InstanceClient{
		BaseURL:    baseURL,
		User:       user,
		AdminToken: adminToken,
		HTTPClient: &http.Client{
			// Deploys wait on image pulls and session negotiation.
			Timeout: 2 * time.Minute,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do sends a request with identity headers and decodes the JSON response
// into out when the status is 2xx.
func (c *InstanceClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("X-User-ID", c.User)
	if c.AdminToken != "" {
		httpReq.Header.Add("X-Admin-Token", c.AdminToken)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// ListImages sends GET /images.
func (c *InstanceClient) ListImages() (*api.ListImagesResponse, error) {
	var result api.ListImagesResponse
	if err := c.do(http.MethodGet, "/images", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Deploy sends POST /instances to provision a new sandbox.
func (c *InstanceClient) Deploy(image string) (*api.DeployResponse, error) {
	var result api.DeployResponse
	if err := c.do(http.MethodPost, "/instances", api.DeployRequest{Image: image}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListInstances sends GET /instances.
func (c *InstanceClient) ListInstances() (*api.ListInstancesResponse, error) {
	var result api.ListInstancesResponse
	if err := c.do(http.MethodGet, "/instances", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAllInstances sends GET /instances/all. Admin only.
func (c *InstanceClient) ListAllInstances() (*api.ListAllInstancesResponse, error) {
	var result api.ListAllInstancesResponse
	if err := c.do(http.MethodGet, "/instances/all", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DescribeInstance sends GET /instances/{id}.
func (c *InstanceClient) DescribeInstance(ref string) (*api.DescribeResponse, error) {
	var result api.DescribeResponse
	if err := c.do(http.MethodGet, "/instances/"+ref, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Lifecycle sends the start/stop/restart lifecycle endpoints.
func (c *InstanceClient) Lifecycle(ref, action string) (*api.LifecycleResponse, error) {
	var result api.LifecycleResponse
	if err := c.do(http.MethodPost, "/instances/"+ref+"/"+action, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveInstance sends DELETE /instances/{id}.
func (c *InstanceClient) RemoveInstance(ref string) (*api.LifecycleResponse, error) {
	var result api.LifecycleResponse
	if err := c.do(http.MethodDelete, "/instances/"+ref, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegenerateSession sends POST /instances/{id}/session.
func (c *InstanceClient) RegenerateSession(ref string) (*api.RegenerateSessionResponse, error) {
	var result api.RegenerateSessionResponse
	if err := c.do(http.MethodPost, "/instances/"+ref+"/session", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SystemStats sends GET /system/stats.
func (c *InstanceClient) SystemStats() (*api.SystemStatsResponse, error) {
	var result api.SystemStatsResponse
	if err := c.do(http.MethodGet, "/system/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
