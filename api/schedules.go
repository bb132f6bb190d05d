package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/Domenick1991/skyseat/internal/service/schedules"
	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	service schedules.ScheduleUseCase
}

type createScheduleRequest struct {
	RouteID       int64     `json:"route_id"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type addSeatRequest struct {
	SeatNumber string `json:"seat_number"`
	Class      string `json:"class"`
	PriceCents int64  `json:"price_cents"`
}

type updateSeatRequest struct {
	SeatNumber *string `json:"seat_number"`
	Class      *string `json:"class"`
	PriceCents *int64  `json:"price_cents"`
}

type scheduleResponse struct {
	ID             int64  `json:"id"`
	RouteID        int64  `json:"route_id"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	SeatCapacity   int    `json:"seat_capacity"`
	AvailableSeats int    `json:"available_seats"`
	Status         string `json:"status"`
}

type seatResponse struct {
	ID         int64  `json:"id"`
	ScheduleID int64  `json:"schedule_id"`
	SeatNumber string `json:"seat_number"`
	Class      string `json:"class"`
	PriceCents int64  `json:"price_cents"`
	IsBooked   bool   `json:"is_booked"`
}

func NewScheduleHandler(service schedules.ScheduleUseCase) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// Register mounts /schedules.
func (h *ScheduleHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PATCH("/:id/status", h.updateStatus)
	router.DELETE("/:id", h.delete)
	router.POST("/:id/seats", h.addSeat)
}

// RegisterSeats mounts /seats.
func (h *ScheduleHandler) RegisterSeats(router *gin.RouterGroup) {
	router.GET("", h.listSeats)
	router.PUT("/:id", h.updateSeat)
}

func (h *ScheduleHandler) create(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	schedule, err := h.service.CreateSchedule(c.Request.Context(), schedules.CreateScheduleInput{
		RouteID:       req.RouteID,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toScheduleResponse(schedule))
}

func (h *ScheduleHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	schedule, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(schedule))
}

func (h *ScheduleHandler) updateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, err := domain.ParseScheduleStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	schedule, err := h.service.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(schedule))
}

func (h *ScheduleHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) addSeat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req addSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	class, err := domain.ParseSeatClass(req.Class)
	if err != nil {
		writeError(c, err)
		return
	}
	seat, err := h.service.AddSeat(c.Request.Context(), schedules.AddSeatInput{
		ScheduleID: id,
		SeatNumber: req.SeatNumber,
		Class:      class,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSeatResponse(*seat))
}

func (h *ScheduleHandler) listSeats(c *gin.Context) {
	scheduleID, err := strconv.ParseInt(c.Query("scheduleId"), 10, 64)
	if err != nil || scheduleID <= 0 {
		badRequest(c, "scheduleId query parameter is required")
		return
	}
	seats, err := h.service.ListSeats(c.Request.Context(), scheduleID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]seatResponse, 0, len(seats))
	for _, s := range seats {
		resp = append(resp, toSeatResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ScheduleHandler) updateSeat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	input := schedules.UpdateSeatInput{SeatID: id, SeatNumber: req.SeatNumber, PriceCents: req.PriceCents}
	if req.Class != nil {
		class, err := domain.ParseSeatClass(*req.Class)
		if err != nil {
			writeError(c, err)
			return
		}
		input.Class = &class
	}
	seat, err := h.service.UpdateSeat(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSeatResponse(*seat))
}

func toScheduleResponse(s *domain.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:             s.ID,
		RouteID:        s.RouteID,
		DepartureTime:  s.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    s.ArrivalTime.Format(time.RFC3339),
		SeatCapacity:   s.SeatCapacity,
		AvailableSeats: s.AvailableSeats,
		Status:         string(s.Status),
	}
}

func toSeatResponse(s domain.Seat) seatResponse {
	return seatResponse{
		ID:         s.ID,
		ScheduleID: s.ScheduleID,
		SeatNumber: s.SeatNumber,
		Class:      string(s.Class),
		PriceCents: s.PriceCents,
		IsBooked:   s.IsBooked,
	}
}
