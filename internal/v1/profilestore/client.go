// Package profilestore is a read-through HTTP client for the external
// profile service. It is never authoritative inside the core beyond what
// it returns for a given read: display name, color, and emoji always
// come from here, never from client-supplied fields.
package profilestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/logging"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// readTimeout bounds every upstream call so a Room lock is never held
// across a stalled HTTP round trip for longer than this.
const readTimeout = 3 * time.Second

// Client is the concrete ProfileStore implementation, backed by the
// NOCODE_BACKEND_URL HTTP service. It implements types.ProfileStore.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient constructs a profile store client against baseURL, authorized
// with apiKey (sent as a bearer token; empty disables the header).
func NewClient(baseURL, apiKey string) *Client {
	st := gobreaker.Settings{
		Name:        "profilestore",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("profilestore").Set(stateVal)
		},
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: readTimeout},
		cb:         gobreaker.NewCircuitBreaker(st),
	}
}

// rawProfile is the wire shape returned by the upstream store, which may
// use either of two field-naming conventions (lower camelCase or
// capitalized). normalize maps both onto one canonical shape.
type rawProfile struct {
	ID          string `json:"id"`
	ProfileID   string `json:"profileId"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	ColorCap    string `json:"Color"`
	Emoji       string `json:"emoji"`
	EmojiCap    string `json:"Emoji"`
}

func (p rawProfile) normalize() types.ProfileRecord {
	id := p.ProfileID
	if id == "" {
		id = p.ID
	}
	name := p.DisplayName
	if name == "" {
		name = p.Name
	}
	color := p.Color
	if color == "" {
		color = p.ColorCap
	}
	if color == "" {
		color = types.DefaultColor
	}
	emoji := p.Emoji
	if emoji == "" {
		emoji = p.EmojiCap
	}
	if emoji == "" {
		emoji = types.DefaultEmoji
	}
	return types.ProfileRecord{
		ProfileID:   types.ProfileID(id),
		DisplayName: name,
		Color:       color,
		Emoji:       emoji,
	}
}

func profileOperation(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ProfileStoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProfileStoreOperationsTotal.WithLabelValues(op, status).Inc()
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("profile store request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// Read fetches a single profile by id. On any upstream failure it returns
// an error; callers preparing a snapshot degrade to default appearance
// rather than propagating this.
func (c *Client) Read(ctx context.Context, id types.ProfileID) (types.ProfileRecord, error) {
	var record types.ProfileRecord
	err := profileOperation("read", func() error {
		result, err := c.cb.Execute(func() (any, error) {
			data, status, err := c.do(ctx, http.MethodGet, "/api/user-profiles/"+string(id), nil)
			if err != nil {
				return nil, err
			}
			if status == http.StatusNotFound {
				return nil, fmt.Errorf("profile %s not found", id)
			}
			if status >= 300 {
				return nil, fmt.Errorf("profile store returned status %d", status)
			}
			var raw rawProfile
			if err := json.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("decode profile: %w", err)
			}
			return raw.normalize(), nil
		})
		if err != nil {
			if err == gobreaker.ErrOpenState {
				logging.Warn(ctx, "profile store circuit breaker open", zap.String("profileId", string(id)))
			}
			return err
		}
		record = result.(types.ProfileRecord)
		return nil
	})
	return record, err
}

// GetAll lists every known profile.
func (c *Client) GetAll(ctx context.Context) ([]types.ProfileRecord, error) {
	var records []types.ProfileRecord
	err := profileOperation("get_all", func() error {
		result, err := c.cb.Execute(func() (any, error) {
			data, status, err := c.do(ctx, http.MethodGet, "/api/user-profiles", nil)
			if err != nil {
				return nil, err
			}
			if status >= 300 {
				return nil, fmt.Errorf("profile store returned status %d", status)
			}
			var raws []rawProfile
			if err := json.Unmarshal(data, &raws); err != nil {
				return nil, fmt.Errorf("decode profiles: %w", err)
			}
			out := make([]types.ProfileRecord, 0, len(raws))
			for _, raw := range raws {
				out = append(out, raw.normalize())
			}
			return out, nil
		})
		if err != nil {
			return err
		}
		records = result.([]types.ProfileRecord)
		return nil
	})
	return records, err
}

// CreateRequest is the payload accepted by Create.
type CreateRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// Create registers a new profile upstream.
func (c *Client) Create(ctx context.Context, req CreateRequest) (types.ProfileRecord, error) {
	var record types.ProfileRecord
	err := profileOperation("create", func() error {
		result, err := c.cb.Execute(func() (any, error) {
			data, status, err := c.do(ctx, http.MethodPost, "/api/user-profiles", req)
			if err != nil {
				return nil, err
			}
			if status >= 300 {
				return nil, fmt.Errorf("profile store returned status %d", status)
			}
			var raw rawProfile
			if err := json.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("decode profile: %w", err)
			}
			return raw.normalize(), nil
		})
		if err != nil {
			return err
		}
		record = result.(types.ProfileRecord)
		return nil
	})
	return record, err
}

// Update applies a partial patch to an existing profile.
func (c *Client) Update(ctx context.Context, id types.ProfileID, patch map[string]any) (types.ProfileRecord, error) {
	var record types.ProfileRecord
	err := profileOperation("update", func() error {
		result, err := c.cb.Execute(func() (any, error) {
			data, status, err := c.do(ctx, http.MethodPut, "/api/user-profiles/"+string(id), patch)
			if err != nil {
				return nil, err
			}
			if status >= 300 {
				return nil, fmt.Errorf("profile store returned status %d", status)
			}
			var raw rawProfile
			if err := json.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("decode profile: %w", err)
			}
			return raw.normalize(), nil
		})
		if err != nil {
			return err
		}
		record = result.(types.ProfileRecord)
		return nil
	})
	return record, err
}

// Delete removes a profile upstream.
func (c *Client) Delete(ctx context.Context, id types.ProfileID) error {
	return profileOperation("delete", func() error {
		_, err := c.cb.Execute(func() (any, error) {
			_, status, err := c.do(ctx, http.MethodDelete, "/api/user-profiles/"+string(id), nil)
			if err != nil {
				return nil, err
			}
			if status >= 300 && status != http.StatusNotFound {
				return nil, fmt.Errorf("profile store returned status %d", status)
			}
			return nil, nil
		})
		return err
	})
}

// Search forwards a query-parameter search to the upstream store.
func (c *Client) Search(ctx context.Context, query string) ([]types.ProfileRecord, error) {
	var records []types.ProfileRecord
	err := profileOperation("search", func() error {
		result, err := c.cb.Execute(func() (any, error) {
			data, status, err := c.do(ctx, http.MethodGet, "/api/user-profiles/search?"+query, nil)
			if err != nil {
				return nil, err
			}
			if status >= 300 {
				return nil, fmt.Errorf("profile store returned status %d", status)
			}
			var raws []rawProfile
			if err := json.Unmarshal(data, &raws); err != nil {
				return nil, fmt.Errorf("decode profiles: %w", err)
			}
			out := make([]types.ProfileRecord, 0, len(raws))
			for _, raw := range raws {
				out = append(out, raw.normalize())
			}
			return out, nil
		})
		if err != nil {
			return err
		}
		records = result.([]types.ProfileRecord)
		return nil
	})
	return records, err
}

var _ types.ProfileStore = (*Client)(nil)
