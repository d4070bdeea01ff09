package ledger

import "github.com/gin-gonic/gin"

func SetupLedgerRoutes(rg *gin.RouterGroup, controller *Controller, middleware ...gin.HandlerFunc) {
	ledger := rg.Group("/ledger", middleware...)
	{
		ledger.GET("/:productId/seats/:seatId", controller.SeatHistory) // GET /api/v1/ledger/:productId/seats/:seatId
		ledger.GET("/:productId/causes", controller.CauseSummary)       // GET /api/v1/ledger/:productId/causes
	}
}
