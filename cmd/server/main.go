// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/pokerdealer/dealerd/internal/auth"
	"github.com/pokerdealer/dealerd/internal/cache"
	"github.com/pokerdealer/dealerd/internal/database"
	"github.com/pokerdealer/dealerd/internal/directory"
	"github.com/pokerdealer/dealerd/internal/fanout"
	"github.com/pokerdealer/dealerd/internal/handlers"
	"github.com/pokerdealer/dealerd/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	store, cleanup := buildStore(ctx, logger)
	defer cleanup()

	broker := buildBroker(ctx, logger)

	svc := directory.NewService(store, broker, logger)
	go svc.RunJanitor(ctx, 5*time.Minute, roomTTL())

	hub := fanout.NewHub(broker, logger)
	srv := handlers.NewServer(svc, hub, logger)
	api, ws := srv.Routes()

	// The websocket route is registered on its exact pattern and skips
	// LogMiddleware: the status recorder breaks connection hijacking. Every
	// other path is served by the API mux, whose own exact patterns mean no
	// trailing-slash redirect ever fires.
	mux := http.NewServeMux()
	mux.Handle("GET /api/rooms/{code}/ws", ws)
	mux.Handle("/", middleware.LogMiddleware(logger)(api))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// buildStore selects the room store backend. Postgres is the default;
// STORE_BACKEND=memory runs without a database for local development.
func buildStore(ctx context.Context, logger *logrus.Logger) (directory.Store, func()) {
	if os.Getenv("STORE_BACKEND") == "memory" {
		logger.Info("Using in-memory room store")
		return directory.NewMemoryStore(), func() {}
	}

	pool, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	store := database.NewRoomStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("database schema: %v", err)
	}
	return store, pool.Close
}

// buildBroker selects the fan-out broker. Redis pub/sub when REDIS_ADDR is
// set, otherwise a process-local broker (single node only).
func buildBroker(ctx context.Context, logger *logrus.Logger) fanout.Broker {
	if os.Getenv("REDIS_ADDR") == "" {
		logger.Info("Using in-process fan-out broker")
		return fanout.NewMemoryBroker()
	}

	rdb, err := cache.Connect(ctx)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	return fanout.NewRedisBroker(rdb, logger)
}

func roomTTL() time.Duration {
	if v := os.Getenv("ROOM_TTL_MINUTES"); v != "" {
		if d, err := time.ParseDuration(v + "m"); err == nil && d > 0 {
			return d
		}
	}
	return directory.DefaultRoomTTL
}
