package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig agrupa los parámetros del router que vienen de la configuración.
type RouterConfig struct {
	MaxBodyBytes int64
	// Registry recibe las métricas HTTP; nil crea uno propio.
	Registry *prometheus.Registry
	// HealthCheck verifica la base en /health; nil responde siempre ok.
	HealthCheck func(ctx context.Context) error
}

// NewRouter configura el router de Gin con middlewares y rutas de la API.
func NewRouter(
	logger *zap.Logger,
	cfg RouterConfig,
	authn *Authenticator,
	authH *AuthHandler,
	companyH *CompanyHandler,
) *gin.Engine {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := newHTTPMetrics(reg)

	r := gin.New()
	r.Use(
		zapLoggerMiddleware(logger),
		recoveryMiddleware(logger),
		corsMiddleware(),
		metrics.middleware(),
		bodyLimitMiddleware(cfg.MaxBodyBytes),
	)

	r.GET("/health", healthHandler(logger, cfg.HealthCheck))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/logout", authn.RequireAuth(), authH.Logout)
	auth.GET("/me", authn.RequireAuth(), authH.Me)

	companies := api.Group("/companies")
	companies.GET("", companyH.List)
	companies.GET("/:id", companyH.Get)
	companies.POST("", authn.RequireAuth(), companyH.Create)
	companies.POST("/import", authn.RequireAuth(), companyH.Import)

	r.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, msgNotFound)
	})

	return r
}

func healthHandler(logger *zap.Logger, check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
