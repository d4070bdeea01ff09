package ledger

import (
	"net/http"
	"strconv"

	"seatkeeper/internal/shared/utils/response"
	"seatkeeper/pkg/logger"

	"github.com/gin-gonic/gin"
)

const CodeLedgerUnavailable = "LEDGER_UNAVAILABLE"

type Controller struct {
	repo Repository
	log  *logger.Logger
}

func NewController(repo Repository, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Controller{repo: repo, log: log}
}

func (c *Controller) SeatHistory(ctx *gin.Context) {
	productID, ok := parseProductID(ctx)
	if !ok {
		return
	}
	seatID := ctx.Param("seatId")

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	rows, err := c.repo.ListBySeat(ctx.Request.Context(), productID, seatID, limit)
	if err != nil {
		c.log.LogHTTPError(ctx, err, http.StatusServiceUnavailable)
		response.RespondError(ctx, http.StatusServiceUnavailable, CodeLedgerUnavailable, "Failed to load seat history", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat history retrieved successfully", rows, nil)
}

func (c *Controller) CauseSummary(ctx *gin.Context) {
	productID, ok := parseProductID(ctx)
	if !ok {
		return
	}

	counts, err := c.repo.CountByCause(ctx.Request.Context(), productID)
	if err != nil {
		c.log.LogHTTPError(ctx, err, http.StatusServiceUnavailable)
		response.RespondError(ctx, http.StatusServiceUnavailable, CodeLedgerUnavailable, "Failed to load transition summary", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transition summary retrieved successfully", gin.H{
		"productId": productID,
		"causes":    counts,
	}, nil)
}

func parseProductID(ctx *gin.Context) (int64, bool) {
	productID, err := strconv.ParseInt(ctx.Param("productId"), 10, 64)
	if err != nil || productID <= 0 {
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Product ID must be a positive integer", nil)
		return 0, false
	}
	return productID, true
}
