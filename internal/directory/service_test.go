// internal/directory/service_test.go
package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerdealer/dealerd/internal/fanout"
	"github.com/pokerdealer/dealerd/internal/models"
)

func newTestService() (*Service, *fanout.MemoryBroker) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	broker := fanout.NewMemoryBroker()
	return NewService(NewMemoryStore(), broker, logger), broker
}

func host() models.Player {
	return models.Player{ID: "host-1", Name: "Alice"}
}

func guest(id, name string) models.Player {
	return models.Player{ID: id, Name: name}
}

func TestCreateRoom(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	assert.Len(t, room.Code, 6)
	assert.Equal(t, models.StatusWaiting, room.Status)
	assert.Equal(t, models.MaxPlayers, room.MaxPlayers)
	assert.Equal(t, "normal", room.Settings.Speed)
	assert.Equal(t, "badge", room.Settings.ShowDealer)

	require.Len(t, room.Players, 1)
	assert.True(t, room.Players[0].IsHost)
	assert.Equal(t, "host-1", room.Host.ID)
	assert.Nil(t, room.Dealer)
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, models.Player{ID: "x"}, models.GameSettings{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRoom(ctx, host(), models.GameSettings{Speed: "ludicrous"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRoom(ctx, host(), models.GameSettings{ShowDealer: "hologram"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetRoomIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	a, err := svc.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	b, err := svc.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Lookup is case-insensitive.
	c, err := svc.GetRoom(ctx, "  "+room.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, a.Code, c.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetRoom(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRoomBadCode(t *testing.T) {
	svc, _ := newTestService()
	for _, code := range []string{"", "abc", "ABCDEFG", "AB-CD!"} {
		_, err := svc.GetRoom(context.Background(), code)
		assert.ErrorIs(t, err, ErrValidation, "code %q", code)
	}
}

func TestJoinRoom(t *testing.T) {
	svc, broker := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	events, stop, err := broker.Subscribe(ctx, room.Code)
	require.NoError(t, err)
	defer stop()

	got, err := svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)
	require.Len(t, got.Players, 2)
	assert.False(t, got.Players[1].IsHost)
	assert.Equal(t, models.RolePlayer, got.Players[1].Role)

	select {
	case ev := <-events:
		assert.Equal(t, fanout.EventPlayerJoined, ev.Type)
		require.NotNil(t, ev.Player)
		assert.Equal(t, "p2", ev.Player.ID)
	case <-time.After(time.Second):
		t.Fatal("no player_joined event published")
	}
}

func TestJoinRoomIdempotentRejoin(t *testing.T) {
	svc, broker := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)

	events, stop, err := broker.Subscribe(ctx, room.Code)
	require.NoError(t, err)
	defer stop()

	got, err := svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)

	// A no-op rejoin publishes nothing.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s on rejoin", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinRoomFull(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	for i := 2; i <= models.MaxPlayers; i++ {
		_, err = svc.JoinRoom(ctx, room.Code, guest(string(rune('a'+i)), "Player"))
		require.NoError(t, err)
	}

	_, err = svc.JoinRoom(ctx, room.Code, guest("late", "Late"))
	assert.ErrorIs(t, err, ErrRoomFull)

	got, err := svc.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Len(t, got.Players, models.MaxPlayers)
}

func TestJoinRoomConcurrentNeverOverfills(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	const contenders = 20
	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.JoinRoom(ctx, room.Code, guest(string(rune('A'+n))+"-id", "P"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	joined, rejected := 0, 0
	for err := range errs {
		if err == nil {
			joined++
		} else {
			require.ErrorIs(t, err, ErrRoomFull)
			rejected++
		}
	}
	assert.Equal(t, models.MaxPlayers-1, joined)
	assert.Equal(t, contenders-(models.MaxPlayers-1), rejected)

	got, err := svc.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Len(t, got.Players, models.MaxPlayers)
}

func TestUpdateRoleDealerConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)

	got, err := svc.UpdateRole(ctx, room.Code, "host-1", models.RoleDealer)
	require.NoError(t, err)
	require.NotNil(t, got.Dealer)
	assert.Equal(t, "host-1", got.Dealer.ID)

	// Second claimant is rejected and the room is unchanged.
	_, err = svc.UpdateRole(ctx, room.Code, "p2", models.RoleDealer)
	assert.ErrorIs(t, err, ErrDealerTaken)

	after, err := svc.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	require.NotNil(t, after.Dealer)
	assert.Equal(t, "host-1", after.Dealer.ID)
	assert.Equal(t, models.RolePlayer, after.Players[1].Role)
}

func TestUpdateRoleReassertDealer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, room.Code, "host-1", models.RoleDealer)
	require.NoError(t, err)
	// Re-claiming your own dealer seat is fine.
	got, err := svc.UpdateRole(ctx, room.Code, "host-1", models.RoleDealer)
	require.NoError(t, err)
	assert.Equal(t, "host-1", got.Dealer.ID)
}

func TestUpdateRoleBackToPlayerFreesDealer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, room.Code, "p2", models.RoleDealer)
	require.NoError(t, err)
	got, err := svc.UpdateRole(ctx, room.Code, "p2", models.RolePlayer)
	require.NoError(t, err)
	assert.Nil(t, got.Dealer)

	// Seat is free again for anyone.
	got, err = svc.UpdateRole(ctx, room.Code, "host-1", models.RoleDealer)
	require.NoError(t, err)
	assert.Equal(t, "host-1", got.Dealer.ID)
}

func TestHostCopyTracksRosterEntry(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	got, err := svc.UpdateRole(ctx, room.Code, "host-1", models.RoleDealer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDealer, got.Host.Role)

	got, err = svc.UpdateRole(ctx, room.Code, "host-1", models.RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, models.RolePlayer, got.Host.Role)

	got, err = svc.MovePlayer(ctx, room.Code, "host-1", "host-1", models.Position{X: 7, Y: 9})
	require.NoError(t, err)
	require.NotNil(t, got.Host.Position)
	assert.Equal(t, 7.0, got.Host.Position.X)
}

func TestUpdateRoleUnknownRole(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.UpdateRole(ctx, room.Code, "host-1", "croupier")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMovePlayerHostOnly(t *testing.T) {
	svc, broker := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)

	_, err = svc.MovePlayer(ctx, room.Code, "p2", "p2", models.Position{X: 1, Y: 2})
	assert.ErrorIs(t, err, ErrNotHost)

	events, stop, err := broker.Subscribe(ctx, room.Code)
	require.NoError(t, err)
	defer stop()

	got, err := svc.MovePlayer(ctx, room.Code, "host-1", "p2", models.Position{X: 10, Y: 20})
	require.NoError(t, err)
	require.NotNil(t, got.Players[1].Position)
	assert.Equal(t, 10.0, got.Players[1].Position.X)

	select {
	case ev := <-events:
		assert.Equal(t, fanout.EventPlayerMoved, ev.Type)
		assert.Equal(t, "p2", ev.PlayerID)
		require.NotNil(t, ev.Position)
		assert.Equal(t, 20.0, ev.Position.Y)
	case <-time.After(time.Second):
		t.Fatal("no player_moved event published")
	}
}

func TestMovePlayerUnknownTarget(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.MovePlayer(ctx, room.Code, "host-1", "ghost", models.Position{})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRemovePlayer(t *testing.T) {
	svc, broker := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)
	_, err = svc.UpdateRole(ctx, room.Code, "p2", models.RoleDealer)
	require.NoError(t, err)

	events, stop, err := broker.Subscribe(ctx, room.Code)
	require.NoError(t, err)
	defer stop()

	got, err := svc.RemovePlayer(ctx, room.Code, "host-1", "p2")
	require.NoError(t, err)
	assert.Len(t, got.Players, 1)
	assert.Nil(t, got.Dealer, "removing the dealer frees the dealer seat")

	select {
	case ev := <-events:
		assert.Equal(t, fanout.EventPlayerRemoved, ev.Type)
		assert.Equal(t, "p2", ev.PlayerID)
	case <-time.After(time.Second):
		t.Fatal("no player_removed event published")
	}
}

func TestRemovePlayerGuards(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.Code, guest("p2", "Bob"))
	require.NoError(t, err)

	_, err = svc.RemovePlayer(ctx, room.Code, "p2", "p2")
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = svc.RemovePlayer(ctx, room.Code, "host-1", "host-1")
	assert.ErrorIs(t, err, ErrHostImmutable)

	_, err = svc.RemovePlayer(ctx, room.Code, "host-1", "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestExpireIdle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, host(), models.GameSettings{})
	require.NoError(t, err)

	// Fresh rooms survive the sweep.
	n, err := svc.ExpireIdle(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = svc.ExpireIdle(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.GetRoom(ctx, room.Code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeCode(t *testing.T) {
	code, err := NormalizeCode(" ab12cd ")
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", code)

	_, err = NormalizeCode("AB12C!")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewRoomCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewRoomCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		norm, err := NormalizeCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, norm)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45, "codes should be near-unique")
}
