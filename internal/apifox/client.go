// Package apifox talks to the ApiFox open API and exposes the upload tool.
package apifox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
)

const (
	// DefaultBaseURL is the public ApiFox API.
	DefaultBaseURL = "https://api.apifox.com"
	// DefaultAPIVersion is sent as X-Apifox-Api-Version.
	DefaultAPIVersion = "2024-03-28"
	// DefaultTimeout bounds one upload.
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 1 << 20
)

// Client uploads OpenAPI/Swagger documents to ApiFox.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *common.Logger
}

// NewClient creates a client. Empty values fall back to the defaults.
func NewClient(baseURL, apiVersion string, timeout time.Duration, logger *common.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// importRequest is the import-openapi request body.
type importRequest struct {
	Input string `json:"input"`
}

// Upload imports document into the project.
// POST /v1/projects/{projectId}/import-openapi?locale=zh-CN -> ApiFox import summary
func (c *Client) Upload(ctx context.Context, projectID, accessToken, document string) (json.RawMessage, error) {
	payload, err := json.Marshal(importRequest{Input: document})
	if err != nil {
		return nil, tools.NewInternalError(err, "failed to encode upload request: %v", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/import-openapi?locale=zh-CN", c.baseURL, url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, tools.NewUpstreamError(err, "upload to apifox failed: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Apifox-Api-Version", c.apiVersion)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info().
		Str("project_id", projectID).
		Str("api_version", c.apiVersion).
		Int("document_bytes", len(document)).
		Msg("uploading document to apifox")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Str("project_id", projectID).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("error", err.Error()).
			Msg("apifox request failed")
		return nil, tools.NewUpstreamError(err, "upload to apifox failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, tools.NewUpstreamError(err, "upload to apifox failed: failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().
			Str("project_id", projectID).
			Int("status", resp.StatusCode).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("apifox rejected upload")
		return nil, tools.NewUpstreamError(nil, "apifox API call failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Info().
		Str("project_id", projectID).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("apifox upload complete")

	return asJSON(body), nil
}

// asJSON returns body unchanged when it is JSON, otherwise as a JSON string.
func asJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("{}")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}
