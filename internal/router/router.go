package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/valyala/fasthttp/pprofhandler"

	apiHandler "github.com/fastygo/accounts/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Users  *apiHandler.UserHandler
	Health *apiHandler.HealthHandler
}

// Options toggles the operational endpoints.
type Options struct {
	EnablePprof   bool
	EnableMetrics bool
	// Gatherer backs /metrics; defaults to the global registry.
	Gatherer prometheus.Gatherer
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler, opts Options) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)

	// Protected routes
	r.GET("/api/v1/users", authMiddleware(handlers.Users.List))
	r.POST("/api/v1/users", authMiddleware(handlers.Users.Create))
	r.GET("/api/v1/users/{id}", authMiddleware(handlers.Users.Get))
	r.PUT("/api/v1/users/{id}", authMiddleware(handlers.Users.Update))
	r.DELETE("/api/v1/users/{id}", authMiddleware(handlers.Users.Delete))

	if opts.EnableMetrics {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if opts.EnablePprof {
		r.GET("/debug/pprof/{profile:*}", pprofhandler.PprofHandler)
	}

	return r
}
