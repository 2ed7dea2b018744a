package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmined/aclnotify/internal/server/handlers/api"
	"github.com/openmined/aclnotify/internal/server/handlers/events"
	"github.com/openmined/aclnotify/internal/server/middlewares"
	"github.com/openmined/aclnotify/internal/version"
)

func SetupRoutes(cfg *HTTPConfig, eventsH *events.EventsHandler, gatherer prometheus.Gatherer) (http.Handler, error) {
	r := gin.New()

	rateLimiter, err := middlewares.RateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	r.Use(middlewares.GZIP())
	r.Use(middlewares.SecureHeaders(cfg.TLSEnabled()))

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.Use(rateLimiter)
	v1.Use(middlewares.JWTAuth(cfg.AuthSecret))
	{
		v1.POST("/events", eventsH.Accept)
	}

	r.NoRoute(func(c *gin.Context) {
		c.PureJSON(http.StatusNotFound, api.APIError{
			Code:    api.CodeNotFound,
			Message: "not found",
		})
	})

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.PureJSON(http.StatusMethodNotAllowed, api.APIError{
			Code:    api.CodeNotAllowed,
			Message: "method not allowed",
		})
	})

	return r.Handler(), nil
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
