package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	SeatID int64  `json:"seat_id,omitempty"`
}

// codeFromError classifies domain errors with the same codes the gRPC
// surface would use.
func codeFromError(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrSeatConflict),
		errors.Is(err, domain.ErrSeatUnavailable),
		errors.Is(err, domain.ErrScheduleHasBookings),
		errors.Is(err, domain.ErrDuplicateBookingRef):
		return codes.Aborted
	case domain.IsNotFound(err):
		return codes.NotFound
	case errors.Is(err, domain.ErrDuplicateSeatNumber),
		errors.Is(err, domain.ErrAlreadyCancelled):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidScheduleTimes):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrScheduleClosed),
		errors.Is(err, domain.ErrInvalidTransition):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func writeError(c *gin.Context, err error) {
	code := codeFromError(err)
	resp := errorResponse{Error: err.Error(), Code: code.String()}
	if code == codes.Internal {
		// storage errors are logged, not echoed
		_ = c.Error(err)
		resp.Error = "internal error"
	}
	var conflict *domain.SeatConflictError
	if errors.As(err, &conflict) {
		resp.SeatID = conflict.SeatID
	}
	c.JSON(runtime.HTTPStatusFromCode(code), resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: codes.InvalidArgument.String()})
}
