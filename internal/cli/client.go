package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIError carries the server's status and its human-readable message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// errorMessage extracts a readable message from an API error body. The server
// answers with {"error": ...} for failures and {"message": ...} for
// informational responses; validation failures carry a fields map.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error == "validation_failed" && len(payload.Fields) > 0 {
			for field, msgs := range payload.Fields {
				if len(msgs) > 0 {
					return fmt.Sprintf("%s: %s", field, msgs[0])
				}
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type Employee struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	RoleName string `json:"role_name"`
	Status   string `json:"status"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Employee  Employee  `json:"employee"`
}

type Agent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Provider string `json:"provider"`
	IsPublic bool   `json:"is_public"`
}

type SyncBundle struct {
	Changed      bool            `json:"changed"`
	AgentID      string          `json:"agent_id"`
	AgentName    string          `json:"agent_name"`
	Config       json.RawMessage `json:"config"`
	IsEnabled    bool            `json:"is_enabled"`
	SystemPrompt string          `json:"system_prompt"`
	SyncToken    string          `json:"sync_token"`
	SyncedAt     time.Time       `json:"synced_at"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Me(ctx context.Context) (*Employee, *Organization, error) {
	var resp struct {
		Employee     Employee     `json:"employee"`
		Organization Organization `json:"organization"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, nil, err
	}
	return &resp.Employee, &resp.Organization, nil
}

func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// SyncAgent pulls the resolved bundle for one agent. With a cached sinceToken
// the server answers changed=false and skips the payload.
func (c *Client) SyncAgent(ctx context.Context, agentID, sinceToken string) (*SyncBundle, error) {
	path := "/sync/agents/" + agentID
	if sinceToken != "" {
		path += "?since_token=" + url.QueryEscape(sinceToken)
	}
	var bundle SyncBundle
	if err := c.do(ctx, http.MethodGet, path, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
