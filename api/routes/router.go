// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"seatkeeper/internal/ledger"
	"seatkeeper/internal/seats"
	"seatkeeper/internal/shared/config"
	"seatkeeper/internal/shared/database"
	"seatkeeper/internal/shared/middleware"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"

	"github.com/gin-gonic/gin"
)

const serviceName = "seatkeeper"

// HealthChecker is anything that can report its own liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the components main wires before building routes
type Dependencies struct {
	Store   store.Store
	Seats   seats.Service
	Ledger  ledger.Repository // nil when the ledger is disabled
	Ingress HealthChecker     // nil when no payment consumer runs
	Logger  *logger.Logger
}

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	deps   Dependencies
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}
	return &Router{
		config: cfg,
		db:     db,
		deps:   deps,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupSeatRoutes(api)
		r.setupLedgerRoutes(api)
	}
}

// adminGuard is empty when JWT auth is disabled
func (r *Router) adminGuard() []gin.HandlerFunc {
	if !r.config.JWT.Enabled {
		return nil
	}
	return []gin.HandlerFunc{middleware.JWTAuthWithConfig(r.config), middleware.RequireAdmin()}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if r.db != nil {
			if err := r.db.HealthCheck(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}

		if err := r.deps.Store.Ping(ctx); err != nil {
			checks["seat_store"] = err.Error()
			healthy = false
		} else {
			checks["seat_store"] = "ok"
		}

		// a reconnecting consumer does not make the lock API unhealthy
		if r.deps.Ingress != nil {
			if err := r.deps.Ingress.HealthCheck(ctx); err != nil {
				checks["payment_ingress"] = err.Error()
			} else {
				checks["payment_ingress"] = "ok"
			}
		}

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"checks":    checks,
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "operational",
			"api_version":     r.config.APIVersion,
			"seat_store":      r.config.Seats.Store,
			"lock_ttl":        r.config.Seats.LockTTL.String(),
			"payment_ingress": r.config.Payments.Ingress,
			"ledger":          r.deps.Ledger != nil,
			"timestamp":       time.Now(),
		})
	})
}

// setupSeatRoutes configures catalog and locking routes
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	seatController := seats.NewController(r.deps.Seats, r.deps.Logger)
	seats.SetupSeatRoutes(rg, seatController, seats.RouteOptions{
		AdminMiddleware: r.adminGuard(),
	})
}

// setupLedgerRoutes exposes the transition history when the ledger is on
func (r *Router) setupLedgerRoutes(rg *gin.RouterGroup) {
	if r.deps.Ledger == nil {
		return
	}
	ledgerController := ledger.NewController(r.deps.Ledger, r.deps.Logger)
	ledger.SetupLedgerRoutes(rg, ledgerController, r.adminGuard()...)
}
