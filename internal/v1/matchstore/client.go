// Package matchstore is a read-only HTTP client for the external match
// history service. The core never writes match results here; clients are
// responsible for posting them (see spec.md §9 on the unresolved
// match-persistence ownership question).
package matchstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/sony/gobreaker"
)

const readTimeout = 3 * time.Second

// Client is the concrete MatchStore implementation. It implements
// types.MatchStore.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient constructs a match store client against baseURL.
func NewClient(baseURL, apiKey string) *Client {
	st := gobreaker.Settings{
		Name:        "matchstore",
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
			metrics.CircuitBreakerState.WithLabelValues("matchstore").Set(stateVal)
		},
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: readTimeout},
		cb:         gobreaker.NewCircuitBreaker(st),
	}
}

type rawMatch struct {
	GameType    string `json:"gameType"`
	WinnerID    string `json:"winnerId"`
	WinnerName  string `json:"winnerName"`
	WinnerScore int    `json:"winnerScore"`
	LoserID     string `json:"loserId"`
	LoserName   string `json:"loserName"`
	LoserScore  int    `json:"loserScore"`
	RoomID      string `json:"roomId"`
	Timestamp   int64  `json:"timestamp"`
}

func (m rawMatch) normalize() types.MatchRecord {
	return types.MatchRecord{
		GameType:    types.GameType(m.GameType),
		WinnerID:    types.ProfileID(m.WinnerID),
		WinnerName:  m.WinnerName,
		WinnerScore: m.WinnerScore,
		LoserID:     types.ProfileID(m.LoserID),
		LoserName:   m.LoserName,
		LoserScore:  m.LoserScore,
		RoomID:      types.RoomID(m.RoomID),
		Timestamp:   time.UnixMilli(m.Timestamp),
	}
}

func matchOperation(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.MatchStoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.MatchStoreOperationsTotal.WithLabelValues(op, status).Inc()
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]types.MatchRecord, error) {
	var records []types.MatchRecord
	err := matchOperation("read", func() error {
		result, err := c.cb.Execute(func() (any, error) {
			ctx, cancel := context.WithTimeout(ctx, readTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return nil, fmt.Errorf("build request: %w", err)
			}
			if c.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, fmt.Errorf("match store request failed: %w", err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read response: %w", err)
			}
			if resp.StatusCode >= 300 {
				return nil, fmt.Errorf("match store returned status %d", resp.StatusCode)
			}

			var raws []rawMatch
			if err := json.Unmarshal(data, &raws); err != nil {
				return nil, fmt.Errorf("decode matches: %w", err)
			}
			out := make([]types.MatchRecord, 0, len(raws))
			for _, raw := range raws {
				out = append(out, raw.normalize())
			}
			return out, nil
		})
		if err != nil {
			return err
		}
		records = result.([]types.MatchRecord)
		return nil
	})
	return records, err
}

// ByGameType returns every recorded match for a given game.
func (c *Client) ByGameType(ctx context.Context, game types.GameType) ([]types.MatchRecord, error) {
	return c.get(ctx, "/api/wins/"+url.PathEscape(string(game)))
}

// ByPlayer returns every recorded match involving a given profile.
func (c *Client) ByPlayer(ctx context.Context, profile types.ProfileID) ([]types.MatchRecord, error) {
	return c.get(ctx, "/api/wins/player/"+url.PathEscape(string(profile)))
}

// ByRoom returns the recorded matches for a given room/game pair.
func (c *Client) ByRoom(ctx context.Context, room types.RoomID, game types.GameType) ([]types.MatchRecord, error) {
	return c.get(ctx, "/api/wins/room/"+url.PathEscape(string(room))+"/"+url.PathEscape(string(game)))
}

var _ types.MatchStore = (*Client)(nil)
