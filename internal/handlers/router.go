package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/internal/websocket"
)

// Deps are the optional collaborators of the router. Endpoints that
// need a missing one are not mounted.
type Deps struct {
	DB       *sqlx.DB
	Hub      *websocket.Hub
	Geocoder Geocoder
}

// NewRouter mounts every endpoint
func NewRouter(e *engine.Engine, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", Health(e))

	if deps.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(deps.Hub, e.Store.ListByOwnerOrAll))
	}

	r.Route("/api", func(r chi.Router) {
		// Telemetry
		r.Get("/telemetry", GetTelemetry(e))
		r.Get("/telemetry/stats", GetTelemetryStats(e))
		r.Get("/telemetry/bins/{id}", GetTelemetryBin(e))
		r.Post("/telemetry/bins", CreateTelemetryBin(e, deps.Geocoder))
		r.Delete("/telemetry/bins/{id}", DeleteTelemetryBin(e))
		r.Post("/telemetry/bags", CreateBagBatch(e))

		// Session
		r.Get("/session", GetSession(e))
		r.Post("/session/reset", ResetSession(e))
		if deps.DB != nil {
			r.Get("/session/history", GetSessionHistory(deps.DB))
		}

		// Collection log
		r.Get("/collections", GetCollections(e))
		r.Post("/collections", CreateCollection(e))
		r.Put("/collections", ReplaceCollections(e))
		r.Delete("/collections/{binId}", DeleteCollection(e))

		// Route summaries
		r.Get("/routes", GetRoutes(e))
		r.Get("/routes/summary", GetGlobalSummary(e))
		r.Get("/routes/{id}/summary", GetRouteSummary(e))
		r.Get("/routes/{id}/collections", GetRouteCollections(e))
	})

	return r
}
