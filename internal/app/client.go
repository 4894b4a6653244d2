package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BackendClient talks JSON over HTTP to the assistant backend. Chat and goal
// calls carry no client-side timeout or retry: they run to completion or
// failure, and a failure waits for an explicit user re-action.
type BackendClient struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *Logger
}

func NewBackendClient(baseURL string, logger *Logger) *BackendClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}
	if logger == nil {
		logger = NewLogger(io.Discard)
	}
	return &BackendClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		Logger:  logger,
	}
}

// ChatRequest is the payload for POST /api/chat. Conversation holds only
// well-formed prior turns; the new text travels in Message.
type ChatRequest struct {
	Message      string       `json:"message"`
	Conversation []Message    `json:"conversation"`
	Location     *Coordinates `json:"location,omitempty"`
}

// ChatResponse is the structured assistant reply. Every field is optional;
// Goals is non-nil (possibly empty) only when the backend chose to include a
// goal list, which then replaces the local collection wholesale.
type ChatResponse struct {
	Reply     string                 `json:"reply,omitempty"`
	ReplyMD   string                 `json:"reply_md,omitempty"`
	Items     []MessageItem          `json:"items,omitempty"`
	CTA       string                 `json:"cta,omitempty"`
	Tips      []string               `json:"tips,omitempty"`
	PlaceName string                 `json:"place_name,omitempty"`
	Weather   map[string]interface{} `json:"weather,omitempty"`
	Goals     []Goal                 `json:"goals,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// CreateGoalRequest is the payload for POST /api/goals.
type CreateGoalRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	TargetDate    string   `json:"target_date,omitempty"`
	TargetValue   float64  `json:"target_value"`
	TargetUnit    string   `json:"target_unit"`
	TargetPeriod  string   `json:"target_period,omitempty"`
	ProgressValue *float64 `json:"progress_value,omitempty"`
}

// GoalPatch is a partial update for PATCH /api/goals/{id}. Nil fields are
// omitted; the server answers with the full updated record.
type GoalPatch struct {
	Progress *float64 `json:"progress,omitempty"`
	Status   *string  `json:"status,omitempty"`
}

func (c *BackendClient) ListGoals(ctx context.Context) ([]Goal, error) {
	var payload struct {
		Goals []Goal `json:"goals"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Goals, nil
}

func (c *BackendClient) CreateGoal(ctx context.Context, req CreateGoalRequest) (Goal, error) {
	var goal Goal
	if err := c.do(ctx, http.MethodPost, "/api/goals", req, &goal); err != nil {
		return Goal{}, err
	}
	return goal, nil
}

// UpdateGoal returns the full server-side record plus the optional one-shot
// system message the backend may attach to the mutation.
func (c *BackendClient) UpdateGoal(ctx context.Context, id string, patch GoalPatch) (Goal, string, error) {
	var payload struct {
		Goal
		SystemMessage string `json:"system_message,omitempty"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/goals/"+id, patch, &payload); err != nil {
		return Goal{}, "", err
	}
	return payload.Goal, payload.SystemMessage, nil
}

func (c *BackendClient) DeleteGoal(ctx context.Context, id string) (string, error) {
	var payload struct {
		SystemMessage string `json:"system_message,omitempty"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/goals/"+id, nil, &payload); err != nil {
		return "", err
	}
	return payload.SystemMessage, nil
}

func (c *BackendClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return ChatResponse{}, err
	}
	return resp, nil
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	start := time.Now()
	request, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(request)
	if err != nil {
		c.Logger.Error("backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.Logger.Info("backend request", map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode >= 300 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(bodyBytes, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		return &ServerError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("invalid backend response: %w", err)
	}
	return nil
}
