package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the planner service over HTTP. It implements Planner.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a planner client. timeout bounds the whole request
// on top of whatever deadline the caller's context carries.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Room  RoomContext `json:"room"`
	Query string      `json:"query"`
}

type chatResponse struct {
	Response  string          `json:"response"`
	RouteData json.RawMessage `json:"route_data"`
}

func (c *Client) GenerateReply(ctx context.Context, room RoomContext, query string) (Reply, error) {
	body, err := json.Marshal(chatRequest{Room: room, Query: query})
	if err != nil {
		return Reply{}, fmt.Errorf("planner: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/room-chat", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("planner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("planner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Reply{}, fmt.Errorf("planner: unexpected status %d: %s", resp.StatusCode, snippet)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reply{}, fmt.Errorf("planner: decode response: %w", err)
	}
	return Reply{Text: out.Response, Overlay: out.RouteData}, nil
}
