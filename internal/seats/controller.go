package seats

import (
	"errors"
	"net/http"
	"strconv"

	"seatkeeper/internal/shared/utils/response"
	"seatkeeper/internal/store"
	"seatkeeper/pkg/logger"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised on 503 responses
const retryAfterSeconds = "1"

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Controller{service: service, log: log}
}

// SEAT CATALOG

func (c *Controller) RegisterSeats(ctx *gin.Context) {
	var req RegisterSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, CodeInvalidRequest, "Invalid request data", err.Error())
		return
	}

	if err := c.service.RegisterSeats(ctx.Request.Context(), req.ProductID, req.Seats); err != nil {
		c.respondSeatError(ctx, "Failed to register seats", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats registered successfully", RegisterSeatsResponse{
		ProductID:  req.ProductID,
		Registered: len(req.Seats),
	}, nil)
}

func (c *Controller) ListSeatStatuses(ctx *gin.Context) {
	productID, err := strconv.ParseInt(ctx.Param("productId"), 10, 64)
	if err != nil || productID <= 0 {
		response.RespondError(ctx, http.StatusBadRequest, CodeInvalidRequest, "Product ID must be a positive integer", nil)
		return
	}

	seats, err := c.service.ListSeatStatuses(ctx.Request.Context(), productID)
	if err != nil {
		c.respondSeatError(ctx, "Failed to get seat statuses", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat statuses retrieved successfully", seats, nil)
}

// SEAT LOCKING

func (c *Controller) LockSeat(ctx *gin.Context) {
	var req LockSeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, CodeInvalidRequest, "Invalid request data", err.Error())
		return
	}

	lock, err := c.service.LockSeat(ctx.Request.Context(), req.ProductID, req.SeatID, req.UserID)
	if err != nil {
		c.respondSeatError(ctx, "Failed to lock seat", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat locked successfully", NewLockSeatResponse(lock, c.service.LockTTL()), nil)
}

// respondSeatError maps engine errors to status codes
func (c *Controller) respondSeatError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrAlreadyLocked):
		response.RespondError(ctx, http.StatusConflict, CodeSeatAlreadyLocked, message, err.Error())
	case errors.Is(err, ErrAlreadyReserved):
		response.RespondError(ctx, http.StatusConflict, CodeSeatAlreadyReserved, message, err.Error())
	case errors.Is(err, ErrSeatNotFound):
		response.RespondError(ctx, http.StatusNotFound, CodeSeatNotFound, message, err.Error())
	case errors.Is(err, ErrInvalidProductID), errors.Is(err, ErrInvalidSeatID), errors.Is(err, ErrInvalidUserID):
		response.RespondError(ctx, http.StatusBadRequest, CodeInvalidRequest, message, err.Error())
	case errors.Is(err, store.ErrTimeout):
		c.log.LogHTTPError(ctx, err, http.StatusGatewayTimeout)
		response.RespondError(ctx, http.StatusGatewayTimeout, CodeStoreTimeout, message, nil)
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, ErrMalformedRecord):
		c.log.LogHTTPError(ctx, err, http.StatusServiceUnavailable)
		ctx.Header("Retry-After", retryAfterSeconds)
		response.RespondError(ctx, http.StatusServiceUnavailable, CodeStoreUnavailable, message, nil)
	default:
		c.log.LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondError(ctx, http.StatusInternalServerError, CodeInternal, message, nil)
	}
}
