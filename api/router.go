package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Pinger is anything the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Logger     *zap.Logger
	Bookings   *BookingHandler
	Schedules  *ScheduleHandler
	Health     map[string]Pinger
	SwaggerDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(Recovery(logger), RequestLogger(logger))

	r.GET("/health", healthHandler(cfg.Health))
	if cfg.Bookings != nil {
		cfg.Bookings.Register(r.Group("/bookings"))
	}
	if cfg.Schedules != nil {
		cfg.Schedules.Register(r.Group("/schedules"))
		cfg.Schedules.RegisterSeats(r.Group("/seats"))
	}

	if cfg.SwaggerDir != "" {
		r.Static("/swagger", cfg.SwaggerDir)
		r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/skyseat.swagger.json"))))
	}
	return r
}

func healthHandler(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failed := gin.H{}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
