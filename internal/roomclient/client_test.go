// internal/roomclient/client_test.go
package roomclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerdealer/dealerd/internal/directory"
	"github.com/pokerdealer/dealerd/internal/models"
)

func errorServer(t *testing.T, status int, msg string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		msg    string
		want   error
	}{
		{http.StatusBadRequest, "directory: validation failed: bad code", directory.ErrValidation},
		{http.StatusNotFound, "directory: room not found", directory.ErrNotFound},
		{http.StatusConflict, "directory: room is full", directory.ErrRoomFull},
		{http.StatusConflict, "directory: dealer role already taken", directory.ErrDealerTaken},
		{http.StatusForbidden, "directory: caller is not the host", directory.ErrNotHost},
		{http.StatusServiceUnavailable, "upstream down", ErrTransient},
	}

	for _, tc := range cases {
		ts := errorServer(t, tc.status, tc.msg)
		_, err := New(ts.URL).JoinRoom(context.Background(), "ABC123", models.Player{Name: "Bob"})
		assert.ErrorIs(t, err, tc.want, "status %d %q", tc.status, tc.msg)
	}
}

func TestGetRoomRetriesTransientOnly(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(roomResponse{
			RoomID: "ABC123",
			Room:   &models.Room{Code: "ABC123", MaxPlayers: models.MaxPlayers},
		})
	}))
	t.Cleanup(ts.Close)

	room, err := New(ts.URL).GetRoom(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", room.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetRoomGivesUpAfterBoundedAttempts(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	_, err := New(ts.URL).GetRoom(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, int32(lookupAttempts), calls.Load())
}

func TestGetRoomDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	_, err := New(ts.URL).GetRoom(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, directory.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}
