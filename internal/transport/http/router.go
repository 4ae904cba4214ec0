// Package httptransport assembles the public router: middleware,
// capability-gated route groups, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assignmenthandler "docgate/internal/assignment/handler"
	cataloghandler "docgate/internal/catalog/handler"
	caseshandler "docgate/internal/cases/handler"
	"docgate/internal/platform/middleware"
	"docgate/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger    *slog.Logger
	Validator *middleware.TokenValidator
	Cases     *caseshandler.Handler
	Roster    *assignmenthandler.Handler
	Catalog   *cataloghandler.Handler
}

// NewRouter builds the router. The unauthenticated surface is limited to
// health and metrics; everything else runs behind the bearer token and a
// capability gate matching the actor's role.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(middleware.CapViewCases, deps.Logger))
			deps.Cases.RegisterRead(r)
			deps.Catalog.RegisterRead(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(middleware.CapReviewCases, deps.Logger))
			deps.Cases.RegisterReview(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(middleware.CapManageRoster, deps.Logger))
			deps.Roster.Register(r)
			deps.Cases.RegisterReassign(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(middleware.CapManageRules, deps.Logger))
			deps.Catalog.RegisterAdmin(r)
		})
	})

	return r
}
