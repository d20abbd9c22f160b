package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/meli"
	"github.com/Sternrassler/meli-trends/pkg/metrics"
	"github.com/Sternrassler/meli-trends/pkg/session"
	"github.com/Sternrassler/meli-trends/pkg/trends"
)

// Upstream is the subset of the MercadoLibre client the handlers call.
// *meli.Client implements it.
type Upstream interface {
	Trends(ctx context.Context, token string, site country.Code) ([]meli.Trend, error)
	CategoryTrends(ctx context.Context, token string, site country.Code, categoryID string) ([]meli.Trend, error)
	Categories(ctx context.Context, token string, site country.Code) ([]meli.Category, error)
	Highlights(ctx context.Context, token string, site country.Code, categoryID string) (*meli.Highlights, error)
	Me(ctx context.Context, token string) (*meli.User, error)
}

// Pinger reports store reachability for /ready. *redis.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Lookups holds the in-process caches of upstream lookups.
type Lookups struct {
	Trends     *cache.Memory[[]meli.Trend]
	Categories *cache.Memory[[]meli.Category]
	Highlights *cache.Memory[*meli.Highlights]
}

// NewLookups creates the lookup caches with a shared size and TTL.
func NewLookups(size int, ttl time.Duration) Lookups {
	return Lookups{
		Trends:     cache.NewMemory[[]meli.Trend]("trends", size, ttl),
		Categories: cache.NewMemory[[]meli.Category]("categories", size, ttl),
		Highlights: cache.NewMemory[*meli.Highlights]("highlights", size, ttl),
	}
}

// Deps are the collaborators of the handlers.
type Deps struct {
	Snapshots  trends.Snapshots
	Trends     *trends.Service
	Upstream   Upstream
	Sessions   *session.Store
	Redis      Pinger
	Lookups    Lookups
	SessionTTL time.Duration
}

type handler struct {
	deps Deps
	now  func() time.Time
}

// NewRouter builds the chi router with middleware and every route.
func NewRouter(deps Deps) http.Handler {
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = session.DefaultTTL
	}
	if deps.Lookups.Trends == nil {
		deps.Lookups = NewLookups(256, 10*time.Minute)
	}
	h := &handler{deps: deps, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(logging.NewLogger("http")))
	r.Use(Metrics)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { writeError(w, r, errNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { writeError(w, r, errNotAllowed) })

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/enriched-trend-cache/{country}", h.getEnrichedCache)
	r.Post("/enriched-trend-cache/{country}", h.postEnrichedCache)

	r.Get("/countries", h.countries)
	r.Get("/categories/{country}", h.categories)
	r.Get("/trends/{country}", h.rawTrends)
	r.Get("/trends/{country}/enriched", h.enrichedTrends)
	r.Get("/trends/{country}/category/{categoryID}", h.categoryTrends)
	r.Get("/highlights/{country}/{categoryID}", h.highlights)

	r.Post("/session", h.createSession)
	r.Get("/session/{id}", h.getSession)
	r.Delete("/session/{id}", h.deleteSession)

	return r
}
