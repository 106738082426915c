package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"registration-backend/internal/health"
	"registration-backend/internal/registrations"
	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/metrics"
	"registration-backend/internal/shared/server/middleware"
	"registration-backend/internal/shared/server/respond"
	"registration-backend/internal/shared/telemetry"
)

const intakeRateGroup = "INTAKE"

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config        config.Config
	Registrations *registrations.Handler
	Health        *health.Service
	// Limiter is optional; tests inject one with a fixed clock.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Forwarding headers count only when sent by a listed proxy; with none
	// listed ClientIP is the socket peer.
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		telemetry.Warn("server.trusted_proxies_invalid", map[string]any{
			"proxies": deps.Config.TrustedProxies,
			"error":   err.Error(),
		})
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		st := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, st)
	})

	if deps.Registrations != nil {
		deps.Registrations.RegisterRoutes(api, intakeLimit(deps))
	}

	return r
}

func intakeLimit(deps RouterDeps) gin.HandlerFunc {
	return middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: intakeRateGroup,
		Limiter:      deps.Limiter,
		Rules: map[string]middleware.RateLimitRule{
			intakeRateGroup: {Rate: deps.Config.IntakeRate, Burst: deps.Config.IntakeBurst},
		},
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
