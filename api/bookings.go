package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/Domenick1991/skyseat/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type seatRequest struct {
	SeatID      int64  `json:"seat_id"`
	PassengerID string `json:"passenger_id"`
}

type createBookingRequest struct {
	UserID     string        `json:"user_id"`
	ScheduleID int64         `json:"schedule_id"`
	Seats      []seatRequest `json:"seats"`
}

type cancelBookingRequest struct {
	CancelledByID string `json:"cancelled_by_id"`
	Reason        string `json:"reason"`
}

type bookingItemResponse struct {
	SeatID              int64  `json:"seat_id"`
	SeatNumber          string `json:"seat_number"`
	PassengerID         string `json:"passenger_id"`
	PriceAtBookingCents int64  `json:"price_at_booking_cents"`
}

type bookingResponse struct {
	ID               int64                 `json:"id"`
	BookingRef       string                `json:"booking_ref"`
	UserID           string                `json:"user_id"`
	ScheduleID       int64                 `json:"schedule_id"`
	Status           string                `json:"status"`
	TotalAmountCents int64                 `json:"total_amount_cents"`
	Items            []bookingItemResponse `json:"items"`
	CreatedAt        string                `json:"created_at"`
}

type cancellationResponse struct {
	ID            int64  `json:"id"`
	BookingID     int64  `json:"booking_id"`
	CancelledByID string `json:"cancelled_by_id"`
	Reason        string `json:"reason"`
	CancelledAt   string `json:"cancelled_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id/cancel", h.cancel)
	router.PUT("/:id/refund", h.refund)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	input := booking.CreateBookingInput{UserID: req.UserID, ScheduleID: req.ScheduleID}
	for _, s := range req.Seats {
		input.Seats = append(input.Seats, booking.SeatRequest{SeatID: s.SeatID, PassengerID: s.PassengerID})
	}

	b, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	// the body is optional: a bare PUT cancels on behalf of the booking's user
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}

	cancellation, err := h.service.CancelBooking(c.Request.Context(), booking.CancelBookingInput{
		BookingID:     id,
		CancelledByID: req.CancelledByID,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancellationResponse{
		ID:            cancellation.ID,
		BookingID:     cancellation.BookingID,
		CancelledByID: cancellation.CancelledByID,
		Reason:        cancellation.Reason,
		CancelledAt:   cancellation.CancelledAt.Format(time.RFC3339),
	})
}

func (h *BookingHandler) refund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.service.MarkRefunded(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:               b.ID,
		BookingRef:       b.BookingRef,
		UserID:           b.UserID,
		ScheduleID:       b.ScheduleID,
		Status:           string(b.Status),
		TotalAmountCents: b.TotalAmountCents,
		Items:            make([]bookingItemResponse, 0, len(b.Items)),
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range b.Items {
		resp.Items = append(resp.Items, bookingItemResponse{
			SeatID:              item.SeatID,
			SeatNumber:          item.SeatNumber,
			PassengerID:         item.PassengerID,
			PriceAtBookingCents: item.PriceAtBookingCents,
		})
	}
	return resp
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
