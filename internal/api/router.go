package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/api/handlers"
	mw "github.com/Harshitk-cp/mashaaer/internal/api/middleware"
	"github.com/Harshitk-cp/mashaaer/internal/effects"
	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger is implemented by state stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from. Store and
// Distill may be nil.
type Deps struct {
	Engine  *service.Engine
	Distill *service.DistillService
	Effects *effects.LogSink
	Store   any

	RateLimitRPS   float64
	RateLimitBurst int
}

// App holds the router and request metrics.
type App struct {
	Router    *chi.Mux
	metrics   *mw.Metrics
	startTime time.Time
}

func NewApp(deps Deps, logger *zap.Logger) *App {
	engine := deps.Engine
	distill := deps.Distill
	if distill == nil {
		distill = service.NewDistillService(engine.Memory(), engine.Narratives(), logger)
	}
	feed := deps.Effects
	if feed == nil {
		feed = effects.NewLogSink(0, logger)
	}

	eventHandler := handlers.NewEventHandler(engine)
	memoryHandler := handlers.NewMemoryHandler(engine.Memory())
	ritualHandler := handlers.NewRitualHandler(engine.Rituals(), engine.Sessions())
	narrativeHandler := handlers.NewNarrativeHandler(engine.Narratives(), engine.Retrieval(), distill)
	behaviorHandler := handlers.NewBehaviorHandler(engine.Behavior())
	effectsHandler := handlers.NewEffectsHandler(feed)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		metrics:   mw.NewMetrics(),
		startTime: time.Now(),
	}

	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if deps.RateLimitRPS > 0 {
		r.Use(mw.NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst).Middleware)
	}

	r.Get("/health", healthHandler(deps.Store))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", eventHandler.Create)

		r.Get("/episodes", memoryHandler.Episodes)
		r.Get("/semantic/{key}", memoryHandler.GetSemantic)
		r.Put("/semantic/{key}", memoryHandler.PutSemantic)
		r.Delete("/memory", memoryHandler.Clear)

		r.Route("/rituals", func(r chi.Router) {
			r.Get("/", ritualHandler.List)
			r.Post("/", ritualHandler.Create)
			r.Get("/history", ritualHandler.History)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ritualHandler.GetByID)
				r.Post("/trigger", ritualHandler.Trigger)
			})
		})

		r.Get("/sessions", ritualHandler.Sessions)
		r.Delete("/sessions/{id}", ritualHandler.CancelSession)

		r.Route("/narratives", func(r chi.Router) {
			r.Post("/", narrativeHandler.Create)
			r.Get("/", narrativeHandler.List)
			r.Get("/related", narrativeHandler.Related)
			r.Post("/recall", narrativeHandler.Recall)
			r.Get("/themes", narrativeHandler.Themes)
			r.Post("/distill", narrativeHandler.Distill)
			r.Post("/resolve", narrativeHandler.Resolve)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", narrativeHandler.GetByID)
				r.Post("/feedback", narrativeHandler.Feedback)
			})
		})

		r.Post("/reflect", behaviorHandler.Reflect)
		r.Get("/reflect/{topic}", behaviorHandler.SelfReflection)
		r.Get("/behavior", behaviorHandler.Get)
		r.Post("/behavior/feedback", behaviorHandler.Feedback)

		r.Get("/effects", effectsHandler.List)
	})

	return app
}

func healthHandler(st any) http.HandlerFunc {
	pinger, _ := st.(Pinger)
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"http":           app.metrics.Snapshot(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		})
	}
}
