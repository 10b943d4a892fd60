// internal/roomclient/client.go

// Package roomclient is the Go client for the room directory: a thin REST
// wrapper plus a Controller that keeps a local view of one room reconciled
// against the fan-out stream.
package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/pokerdealer/dealerd/internal/directory"
	"github.com/pokerdealer/dealerd/internal/models"
)

// ErrTransient marks connectivity-class failures: the only error class the
// client retries automatically, with a bounded attempt count.
var ErrTransient = errors.New("roomclient: transient network error")

const (
	// lookupAttempts and lookupBackoff bound the room lookup retry loop.
	lookupAttempts = 3
	lookupBackoff  = time.Second

	requestTimeout = 10 * time.Second
)

// Client calls the directory's REST surface. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	// The cookie jar keeps the session cookie, so every call resolves to
	// the same player identity server-side.
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout, Jar: jar},
	}
}

type roomResponse struct {
	RoomID     string       `json:"roomId"`
	Room       *models.Room `json:"room"`
	InviteLink string       `json:"inviteLink,omitempty"`
}

// Health probes the server before join attempts. Failure is transient.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	return nil
}

// CreateRoom creates a room hosted by host and returns the authoritative
// document plus the shareable invite link.
func (c *Client) CreateRoom(ctx context.Context, host models.Player, settings models.GameSettings) (*models.Room, string, error) {
	body := map[string]interface{}{"host": host, "settings": settings}
	var out roomResponse
	if err := c.do(ctx, http.MethodPost, "/api/rooms", body, &out); err != nil {
		return nil, "", err
	}
	return out.Room, out.InviteLink, nil
}

// GetRoom fetches the authoritative room state, retrying transient
// failures up to lookupAttempts with a fixed backoff. Directory errors
// (not found, validation) are surfaced immediately, never retried.
func (c *Client) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	var lastErr error
	for attempt := 1; attempt <= lookupAttempts; attempt++ {
		var out roomResponse
		err := c.do(ctx, http.MethodGet, "/api/rooms/"+code, nil, &out)
		if err == nil {
			return out.Room, nil
		}
		if !errors.Is(err, ErrTransient) {
			return nil, err
		}
		lastErr = err
		if attempt < lookupAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(lookupBackoff):
			}
		}
	}
	return nil, lastErr
}

// JoinRoom seats user in the room.
func (c *Client) JoinRoom(ctx context.Context, code string, user models.Player) (*models.Room, error) {
	body := map[string]interface{}{"user": user}
	var out roomResponse
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+code+"/join", body, &out); err != nil {
		return nil, err
	}
	return out.Room, nil
}

// UpdateRole sets the caller's role in the room.
func (c *Client) UpdateRole(ctx context.Context, code, role string) error {
	return c.do(ctx, http.MethodPut, "/api/rooms/"+code+"/role", map[string]string{"role": role}, nil)
}

// MovePlayer records a drag placement. Host-only server-side.
func (c *Client) MovePlayer(ctx context.Context, code, playerID string, pos models.Position) error {
	body := map[string]interface{}{"playerId": playerID, "position": pos}
	return c.do(ctx, http.MethodPut, "/api/rooms/"+code+"/move", body, nil)
}

// RemovePlayer removes a player from the room. Host-only server-side.
func (c *Client) RemovePlayer(ctx context.Context, code, playerID string) error {
	return c.do(ctx, http.MethodDelete, "/api/rooms/"+code+"/player/"+playerID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError maps HTTP failures back onto the directory sentinels so
// callers handle client- and server-side errors uniformly.
func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", directory.ErrValidation, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", directory.ErrNotFound, msg)
	case http.StatusConflict:
		// Full room and taken dealer seat share the status; the sentinel is
		// recovered from the message.
		if msg != "" && bytes.Contains([]byte(msg), []byte("full")) {
			return fmt.Errorf("%w: %s", directory.ErrRoomFull, msg)
		}
		return fmt.Errorf("%w: %s", directory.ErrDealerTaken, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", directory.ErrNotHost, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrTransient, msg)
	default:
		return fmt.Errorf("roomclient: server error: %s", msg)
	}
}
