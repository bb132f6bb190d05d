package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/Domenick1991/skyseat/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, input booking.CancelBookingInput) (*domain.BookingCancellation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingCancellation), args.Error(1)
}

func (m *MockBookingUseCase) MarkRefunded(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func newBookingRouter(svc booking.BookingUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{Bookings: NewBookingHandler(svc)})
}

func sampleBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:               7,
		UserID:           "user-1",
		ScheduleID:       3,
		BookingRef:       "BK20261015093005ABCDEF12",
		Status:           status,
		TotalAmountCents: 250,
		Items: []domain.BookingItem{
			{ID: 1, BookingID: 7, SeatID: 11, SeatNumber: "E1", PassengerID: "p-1", PriceAtBookingCents: 100},
			{ID: 2, BookingID: 7, SeatID: 13, SeatNumber: "B1", PassengerID: "p-2", PriceAtBookingCents: 150},
		},
		CreatedAt: time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC),
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(createBookingRequest{
		UserID:     "user-1",
		ScheduleID: 3,
		Seats:      []seatRequest{{SeatID: 11, PassengerID: "p-1"}, {SeatID: 13, PassengerID: "p-2"}},
	})
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	input := booking.CreateBookingInput{
		UserID:     "user-1",
		ScheduleID: 3,
		Seats:      []booking.SeatRequest{{SeatID: 11, PassengerID: "p-1"}, {SeatID: 13, PassengerID: "p-2"}},
	}
	mockService.On("CreateBooking", c.Request.Context(), input).Return(sampleBooking(domain.BookingStatusConfirmed), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "BK20261015093005ABCDEF12", response.BookingRef)
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)
	assert.Equal(t, int64(250), response.TotalAmountCents)
	assert.Len(t, response.Items, 2)
	assert.Equal(t, "2026-10-15T09:30:05Z", response.CreatedAt)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_SeatConflict(t *testing.T) {
	mockService := &MockBookingUseCase{}
	router := newBookingRouter(mockService)

	conflict := &domain.SeatConflictError{SeatID: 13, Err: domain.ErrSeatUnavailable}
	mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, conflict)

	body := `{"user_id":"u","schedule_id":3,"seats":[{"seat_id":13,"passenger_id":"p"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(13), resp.SeatID)
	assert.Equal(t, "Aborted", resp.Code)
}

func TestBookingHandler_create_BadJSON(t *testing.T) {
	mockService := &MockBookingUseCase{}
	router := newBookingRouter(mockService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	router := newBookingRouter(mockService)

	mockService.On("GetBooking", mock.Anything, int64(7)).Return(sampleBooking(domain.BookingStatusConfirmed), nil)
	mockService.On("GetBooking", mock.Anything, int64(8)).Return(nil, domain.ErrBookingNotFound)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/7", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/8", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("PUT", "/bookings/7/cancel", bytes.NewBufferString(`{"cancelled_by_id":"agent","reason":"ill"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	cancelledAt := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	mockService.On("CancelBooking", c.Request.Context(), booking.CancelBookingInput{BookingID: 7, CancelledByID: "agent", Reason: "ill"}).
		Return(&domain.BookingCancellation{ID: 1, BookingID: 7, CancelledByID: "agent", Reason: "ill", CancelledAt: cancelledAt}, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response cancellationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(7), response.BookingID)
	assert.Equal(t, "2026-10-16T12:00:00Z", response.CancelledAt)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_AlreadyCancelled(t *testing.T) {
	mockService := &MockBookingUseCase{}
	router := newBookingRouter(mockService)
	mockService.On("CancelBooking", mock.Anything, mock.Anything).Return(nil, domain.ErrAlreadyCancelled)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/bookings/7/cancel", bytes.NewBufferString(`{"cancelled_by_id":"agent"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_cancel_ReasonOnly(t *testing.T) {
	mockService := &MockBookingUseCase{}
	router := newBookingRouter(mockService)
	cancelledAt := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	mockService.On("CancelBooking", mock.Anything, booking.CancelBookingInput{BookingID: 7, Reason: "ill"}).
		Return(&domain.BookingCancellation{ID: 1, BookingID: 7, CancelledByID: "user-1", Reason: "ill", CancelledAt: cancelledAt}, nil).Once()
	mockService.On("CancelBooking", mock.Anything, booking.CancelBookingInput{BookingID: 8}).
		Return(&domain.BookingCancellation{ID: 2, BookingID: 8, CancelledByID: "user-1", CancelledAt: cancelledAt}, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/bookings/7/cancel", bytes.NewBufferString(`{"reason":"ill"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var response cancellationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "user-1", response.CancelledByID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/bookings/8/cancel", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_refund(t *testing.T) {
	mockService := &MockBookingUseCase{}
	router := newBookingRouter(mockService)

	mockService.On("MarkRefunded", mock.Anything, int64(7)).Return(sampleBooking(domain.BookingStatusRefunded), nil)
	mockService.On("MarkRefunded", mock.Anything, int64(9)).Return(nil, domain.ErrInvalidTransition)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/bookings/7/refund", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var response bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "REFUNDED", response.Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/bookings/9/refund", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
