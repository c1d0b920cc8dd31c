package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/parkaro/internal/infra/metrics"
	"github.com/Spok95/parkaro/internal/lifecycle"
)

type Server struct {
	srv *http.Server
}

// NewRouter собирает gin-движок: служебные ручки и API броней.
func NewRouter(mgr *lifecycle.Manager, log *slog.Logger, exposeMetrics bool, now func() time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), countRequests())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if exposeMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	h := &handlers{mgr: mgr, log: log, now: now}
	api := r.Group("/api")
	api.GET("/locations/:id/slots", h.liveSlots)

	authed := api.Group("", principal())
	authed.POST("/bookings", h.create)
	authed.GET("/bookings/:id", h.get)
	authed.POST("/bookings/:id/extend", h.extend)
	authed.GET("/bookings/:id/cancel", h.quoteCancel)
	authed.POST("/bookings/:id/cancel", h.cancel)
	authed.POST("/bookings/:id/no-show", h.noShow)
	authed.POST("/staff/scan", h.scan)
	authed.POST("/staff/bookings/:id/entry", h.record(gateEntry))
	authed.POST("/staff/bookings/:id/exit", h.record(gateExit))
	authed.POST("/fines/:id/pay", h.payFine)
	authed.PUT("/staff/slots/:id/status", h.slotStatus)
	authed.POST("/staff/slots/:id/maintenance", h.startMaintenance)
	authed.POST("/staff/maintenance/:id/end", h.endMaintenance)
	return r
}

func New(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
