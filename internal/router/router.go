package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/handler"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health         *handler.HealthHandler
	Classification *handler.ClassificationHandler
	Feedback       *handler.FeedbackHandler
	Jobs           *handler.JobHandler
	Patterns       *handler.PatternHandler
	Integrity      *handler.IntegrityHandler
	Stats          *handler.StatsHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	// Route middleware goes after the handler: fiber runs the trailing
	// handlers first.
	read := middleware.NewReadRateLimiter().Handler()
	write := middleware.NewWriteRateLimiter().Handler()
	bulk := middleware.NewBulkRateLimiter().Handler()

	api := app.Group("/api")

	// Videos and playlists share the classification routes.
	for prefix, tt := range map[string]model.TargetType{
		"/videos":    model.TargetVideo,
		"/playlists": model.TargetPlaylist,
	} {
		api.Post(prefix+"/:id/classify", h.Classification.Classify(tt), write)
		api.Get(prefix+"/:id/classification", h.Classification.Get(tt), read)
		api.Post(prefix+"/:id/human", h.Classification.MarkHuman(tt), write)
	}
	api.Post("/playlists/:id/propagate", h.Classification.Propagate, write)
	api.Post("/preview", h.Classification.Preview, read)

	// Bulk jobs
	api.Post("/competitors/:id/reclassify", h.Jobs.Reclassify, bulk)
	api.Get("/jobs/:id", h.Jobs.Get, read)
	api.Delete("/jobs/:id", h.Jobs.Cancel, write)

	// Feedback and patterns
	api.Post("/feedback", h.Feedback.Submit, write)
	api.Get("/patterns", h.Patterns.List, read)
	api.Post("/patterns", h.Patterns.Add, write)
	api.Delete("/patterns", h.Patterns.Remove, write)

	// Integrity
	api.Get("/integrity", h.Integrity.Check, read)
	api.Post("/integrity/fix", h.Integrity.Fix, bulk)

	// Stats
	api.Get("/stats/classification", h.Stats.Classification, read)
	api.Get("/stats/learning", h.Stats.Learning, read)
}
