// Package httpapi assembles the HTTP surface: domain handlers under /api,
// operational endpoints at the root.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cataloghandler "qualis/internal/catalog/handler"
	fulfillmenthandler "qualis/internal/fulfillment/handler"
	issuehandler "qualis/internal/issue/handler"
	"qualis/internal/leadership"
	"qualis/internal/objective"
	"qualis/internal/outbox"
	"qualis/internal/platform/middleware"
	processhandler "qualis/internal/process/handler"
	"qualis/pkg/platform/httputil"
)

// Registrar is anything that mounts routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router mounts.
type Deps struct {
	Process     *processhandler.Handler
	Issue       *issuehandler.Handler
	Fulfillment *fulfillmenthandler.Handler
	Catalog     *cataloghandler.Handler
	Objective   *objective.Handler
	Leadership  *leadership.Handler
	Outbox      *outbox.Outbox
}

// NewRouter builds the service router. Every /api route runs behind the
// tenant and request-id middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/admin/outbox", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, d.Outbox.State())
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequestID())
		api.Use(middleware.Tenant())
		for _, h := range []Registrar{
			d.Process,
			d.Issue,
			d.Fulfillment,
			d.Catalog,
			d.Objective,
			d.Leadership,
		} {
			h.Register(api)
		}
	})

	return r
}
