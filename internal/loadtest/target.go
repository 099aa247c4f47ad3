package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/messaging"
)

// Target executes one match request and returns how many previews came back.
type Target interface {
	Match(ctx context.Context, req matching.Request) (int, error)
}

// HTTPTarget posts requests to the matchmaking API.
type HTTPTarget struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPTarget creates a target for baseURL, e.g. http://localhost:8080.
// When token is set it is sent as a bearer token; otherwise the seeker id is
// sent in the X-User-ID header.
func NewHTTPTarget(baseURL, token string, timeout time.Duration) *HTTPTarget {
	return &HTTPTarget{
		url:    strings.TrimRight(baseURL, "/") + "/api/matchmaking/matches",
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTarget) Match(ctx context.Context, req matching.Request) (int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("loadtest: encode: %w", err)
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	hr.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		hr.Header.Set("Authorization", "Bearer "+t.token)
	} else {
		hr.Header.Set("X-User-ID", req.Seeker.ID)
	}

	resp, err := t.client.Do(hr)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("loadtest: status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var res matching.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return 0, fmt.Errorf("loadtest: decode: %w", err)
	}
	return len(res.Matches), nil
}

// NATSTarget sends requests to the matching workers over match.request.
type NATSTarget struct {
	client *messaging.NATSClient
}

func NewNATSTarget(client *messaging.NATSClient) *NATSTarget {
	return &NATSTarget{client: client}
}

func (t *NATSTarget) Match(ctx context.Context, req matching.Request) (int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("loadtest: encode: %w", err)
	}
	data, err := t.client.RequestMatch(ctx, body)
	if err != nil {
		return 0, err
	}
	var reply matching.Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return 0, fmt.Errorf("loadtest: decode: %w", err)
	}
	if reply.Error != "" {
		return 0, fmt.Errorf("loadtest: %s: %s", reply.Error, reply.Message)
	}
	return len(reply.Matches), nil
}
