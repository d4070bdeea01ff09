package seats

import (
	"github.com/gin-gonic/gin"
)

// RouteOptions carries middleware the API layer attaches to seat routes
type RouteOptions struct {
	AdminMiddleware []gin.HandlerFunc // guards catalog registration
}

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller, opts RouteOptions) {

	seats := rg.Group("/seats")
	{
		// Catalog
		register := append(append([]gin.HandlerFunc{}, opts.AdminMiddleware...), controller.RegisterSeats)
		seats.POST("/register", register...) // POST /api/v1/seats/register

		// Core locking endpoint
		seats.POST("/lock", controller.LockSeat) // POST /api/v1/seats/lock

		seats.GET("/:productId", controller.ListSeatStatuses) // GET /api/v1/seats/:productId
	}
}
