package adaptor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/internal/dto/request"
	"ticket-booking/internal/dto/response"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-booking/pkg/utils"
)

// stubReservations returns a canned response or error for every operation.
type stubReservations struct {
	resp *response.BookingResponse
	list *response.PaginatedResponse[response.BookingResponse]
	err  error
}

func (s *stubReservations) Reserve(_ context.Context, _ uuid.UUID, _ *request.ReserveRequest) (*response.BookingResponse, error) {
	return s.resp, s.err
}

func (s *stubReservations) ConfirmBooking(_ context.Context, _, _ uuid.UUID, _ *request.ConfirmBookingRequest) (*response.BookingResponse, error) {
	return s.resp, s.err
}

func (s *stubReservations) CancelBooking(_ context.Context, _, _ uuid.UUID) (*response.BookingResponse, error) {
	return s.resp, s.err
}

func (s *stubReservations) GetBooking(_ context.Context, _, _ uuid.UUID) (*response.BookingResponse, error) {
	return s.resp, s.err
}

func (s *stubReservations) GetUserBookings(_ context.Context, _ uuid.UUID, _ *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return s.list, s.err
}

func (s *stubReservations) BookingByID(_ context.Context, _ uuid.UUID) (*entity.Booking, error) {
	return nil, s.err
}

func (s *stubReservations) ConfirmPayment(_ context.Context, _ uuid.UUID, _ bool) (bool, error) {
	return false, s.err
}

func (s *stubReservations) Fail(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, s.err
}

func testRouter(svc *stubReservations) *chi.Mux {
	handler := NewBookingHandler(svc, zap.NewNop())
	userID := uuid.New()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(utils.SetUserContext(req.Context(), userID)))
		})
	})
	r.Post("/api/bookings", handler.Reserve)
	r.Get("/api/bookings/{id}", handler.GetBooking)
	r.Post("/api/bookings/{id}/confirm", handler.Confirm)
	r.Post("/api/bookings/{id}/cancel", handler.Cancel)
	return r
}

func sampleBookingResponse(status entity.BookingStatus) *response.BookingResponse {
	return &response.BookingResponse{
		ID:            uuid.New().String(),
		OrderID:       "TKT-20260314-120000-0001",
		Status:        status,
		Quantity:      2,
		TotalPrice:    91.00,
		HoldExpiresAt: time.Date(2026, 3, 14, 12, 5, 0, 0, time.UTC),
	}
}

func TestReserveStatusCodes(t *testing.T) {
	body := `{"event_id":"` + uuid.New().String() + `","tier":"standard","quantity":2}`

	tests := []struct {
		name     string
		svc      *stubReservations
		wantCode int
	}{
		{"created", &stubReservations{resp: sampleBookingResponse(entity.BookingStatusReserved)}, http.StatusCreated},
		{"validation", &stubReservations{err: entity.ErrValidation}, http.StatusBadRequest},
		{"event missing", &stubReservations{err: entity.ErrEventNotFound}, http.StatusNotFound},
		{"tier missing", &stubReservations{err: entity.ErrTierNotFound}, http.StatusNotFound},
		{"exhausted", &stubReservations{err: entity.ErrInventoryExhausted}, http.StatusConflict},
		{"user cap", &stubReservations{err: entity.ErrUserBookingLimit}, http.StatusConflict},
		{"retry budget spent", &stubReservations{err: entity.ErrTemporarilyUnavailable}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
			rec := httptest.NewRecorder()

			testRouter(tt.svc).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestConfirmStatusCodes(t *testing.T) {
	body := `{"payment_token":"tok-12345678"}`
	path := "/api/bookings/" + uuid.New().String() + "/confirm"

	tests := []struct {
		name     string
		svc      *stubReservations
		wantCode int
	}{
		{"accepted", &stubReservations{resp: sampleBookingResponse(entity.BookingStatusPaymentPending)}, http.StatusAccepted},
		{"expired hold", &stubReservations{err: entity.ErrExpiredHold}, http.StatusGone},
		{"not owned", &stubReservations{err: entity.ErrBookingNotOwned}, http.StatusForbidden},
		{"missing", &stubReservations{err: entity.ErrBookingNotFound}, http.StatusNotFound},
		{"invalid state", &stubReservations{err: entity.ErrInvalidState}, http.StatusConflict},
		{"queue down", &stubReservations{err: entity.ErrDownstreamUnavailable}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			rec := httptest.NewRecorder()

			testRouter(tt.svc).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestConfirmRejectsMalformedBookingID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/not-a-uuid/confirm",
		strings.NewReader(`{"payment_token":"tok-12345678"}`))
	rec := httptest.NewRecorder()

	testRouter(&stubReservations{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlersRequireAuth(t *testing.T) {
	// No user in context: the auth middleware normally guarantees one.
	handler := NewBookingHandler(&stubReservations{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.Reserve(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelReturnsBooking(t *testing.T) {
	svc := &stubReservations{resp: sampleBookingResponse(entity.BookingStatusCancelled)}
	path := "/api/bookings/" + uuid.New().String() + "/cancel"

	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()

	testRouter(svc).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)
}
