package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SemanticStatus reports whether the embedding tier can answer.
type SemanticStatus interface {
	Enabled() bool
	Ready() bool
}

type HealthHandler struct {
	db       Pinger
	rdb      *redis.Client
	semantic SemanticStatus
	startAt  time.Time
}

// NewHealthHandler builds the health checks. rdb and semantic may be nil.
func NewHealthHandler(db Pinger, rdb *redis.Client, semantic SemanticStatus) *HealthHandler {
	return &HealthHandler{
		db:       db,
		rdb:      rdb,
		semantic: semantic,
		startAt:  time.Now(),
	}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. The database is required; Redis and the
// semantic tier only degrade the report since the resolver falls back to
// keywords without them.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	db := checkDB(ctx, h.db)
	rd := checkRedis(ctx, h.rdb)
	sem := checkSemantic(h.semantic)

	status := "healthy"
	code := fiber.StatusOK
	if db["status"] != "up" {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	} else if rd["status"] == "down" || sem["status"] == "down" {
		status = "degraded"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":         status,
		"checks":         fiber.Map{"database": db, "redis": rd, "semantic": sem},
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	})
}

func checkDB(ctx context.Context, db Pinger) fiber.Map {
	if db == nil {
		return fiber.Map{"status": "down", "error": "not configured"}
	}
	start := time.Now()
	err := db.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

func checkRedis(ctx context.Context, rdb *redis.Client) fiber.Map {
	if rdb == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

func checkSemantic(s SemanticStatus) fiber.Map {
	switch {
	case s == nil || !s.Enabled():
		return fiber.Map{"status": "disabled"}
	case !s.Ready():
		return fiber.Map{"status": "down", "error": "prototypes not loaded"}
	}
	return fiber.Map{"status": "up"}
}
