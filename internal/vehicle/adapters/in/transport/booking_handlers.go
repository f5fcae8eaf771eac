package transport

import (
	"net/http"

	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/domain"
)

// handleCreateBooking обрабатывает POST /test-drives
func (h *HTTPHandler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	output, err := h.uc.CreateBooking.Execute(r.Context(), in.CreateBookingInput{
		Principal: p,
		CarID:     req.CarID,
		CarBrand:  req.CarBrand,
		Date:      req.ScheduledDate,
		Time:      req.ScheduledTime,
	})
	if err != nil {
		h.handleUseCaseError(w, r, "create_booking", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, output)
}

// handleListBookings обрабатывает GET /test-drives?status=
func (h *HTTPHandler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	var status domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			h.respondError(w, http.StatusBadRequest, "unknown status "+raw, "validation")
			return
		}
		status = st
	}
	h.listBookings(w, r, in.ListBookingsInput{Status: status})
}

// handleListPendingBookings обрабатывает GET /test-drives/pending
func (h *HTTPHandler) handleListPendingBookings(w http.ResponseWriter, r *http.Request) {
	h.listBookings(w, r, in.ListBookingsInput{Status: domain.BookingPending})
}

// handleListUserBookings обрабатывает GET /test-drives/users/{userId}
func (h *HTTPHandler) handleListUserBookings(w http.ResponseWriter, r *http.Request) {
	h.listBookings(w, r, in.ListBookingsInput{UserID: r.PathValue("userId")})
}

func (h *HTTPHandler) listBookings(w http.ResponseWriter, r *http.Request, input in.ListBookingsInput) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	input.Principal = p

	output, err := h.uc.ListBookings.Execute(r.Context(), input)
	if err != nil {
		h.handleUseCaseError(w, r, "list_bookings", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleConfirmBooking обрабатывает PATCH /test-drives/{id}/confirm
func (h *HTTPHandler) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	output, err := h.uc.ConfirmBooking.Execute(r.Context(), in.ConfirmBookingInput{
		Principal: p,
		BookingID: r.PathValue("id"),
	})
	if err != nil {
		h.handleUseCaseError(w, r, "confirm_booking", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleRescheduleBooking обрабатывает PATCH /test-drives/{id}/reschedule
func (h *HTTPHandler) handleRescheduleBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req RescheduleRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	output, err := h.uc.RescheduleBooking.Execute(r.Context(), in.RescheduleBookingInput{
		Principal: p,
		BookingID: r.PathValue("id"),
		Date:      req.ScheduledDate,
		Time:      req.ScheduledTime,
	})
	if err != nil {
		h.handleUseCaseError(w, r, "reschedule_booking", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleCancelBooking обрабатывает DELETE /test-drives/{id}; тело с причиной необязательно
func (h *HTTPHandler) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	output, err := h.uc.CancelBooking.Execute(r.Context(), in.CancelBookingInput{
		Principal: p,
		BookingID: r.PathValue("id"),
		Reason:    req.Reason,
	})
	if err != nil {
		h.handleUseCaseError(w, r, "cancel_booking", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}
