package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/httpserver"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/validate"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/domain"
)

const maxBodySize = 1 << 20 // 1MB

// UseCases — входящие порты vehicle сервиса
type UseCases struct {
	RegisterCar       in.RegisterCarUseCase
	GetCar            in.GetCarUseCase
	ListCars          in.ListCarsUseCase
	ListAvailableCars in.ListAvailableCarsUseCase
	UpdateCar         in.UpdateCarUseCase
	DeleteCar         in.DeleteCarUseCase
	BuyCar            in.BuyCarUseCase
	SellCar           in.SellCarUseCase

	CreateBooking     in.CreateBookingUseCase
	ConfirmBooking    in.ConfirmBookingUseCase
	RescheduleBooking in.RescheduleBookingUseCase
	CancelBooking     in.CancelBookingUseCase
	ListBookings      in.ListBookingsUseCase

	UserReport   in.UserReportUseCase
	DealerReport in.DealerReportUseCase
}

// HTTPHandler обрабатывает HTTP запросы vehicle сервиса
type HTTPHandler struct {
	uc  UseCases
	ws  http.HandlerFunc
	log *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler; ws может быть nil
func NewHTTPHandler(uc UseCases, ws http.HandlerFunc, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{uc: uc, ws: ws, log: log}
}

// RegisterRoutes регистрирует все HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	dealer := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(auth.RequireDealer(next))
	}

	// liveness
	mux.HandleFunc("GET /health", h.handleHealth)

	// cars
	mux.HandleFunc("POST /cars", authMiddleware(h.handleRegisterCar))
	mux.HandleFunc("GET /cars", authMiddleware(h.handleListCars))
	mux.HandleFunc("GET /cars/available", authMiddleware(h.handleListAvailableCars))
	mux.HandleFunc("GET /cars/{id}", authMiddleware(h.handleGetCar))
	mux.HandleFunc("PATCH /cars/{id}", dealer(h.handleUpdateCar))
	mux.HandleFunc("DELETE /cars/{id}", dealer(h.handleDeleteCar))
	mux.HandleFunc("PATCH /cars/{id}/buy", authMiddleware(h.handleBuyCar))
	mux.HandleFunc("PATCH /cars/{id}/sell", authMiddleware(h.handleSellCar))

	// test drives
	mux.HandleFunc("POST /test-drives", authMiddleware(h.handleCreateBooking))
	mux.HandleFunc("GET /test-drives", dealer(h.handleListBookings))
	mux.HandleFunc("GET /test-drives/pending", dealer(h.handleListPendingBookings))
	mux.HandleFunc("GET /test-drives/users/{userId}", authMiddleware(h.handleListUserBookings))
	mux.HandleFunc("PATCH /test-drives/{id}/confirm", dealer(h.handleConfirmBooking))
	mux.HandleFunc("PATCH /test-drives/{id}/reschedule", authMiddleware(h.handleRescheduleBooking))
	mux.HandleFunc("DELETE /test-drives/{id}", authMiddleware(h.handleCancelBooking))

	// reports
	mux.HandleFunc("GET /reports/users/{userId}", authMiddleware(h.handleUserReport))
	mux.HandleFunc("GET /reports/dealer", dealer(h.handleDealerReport))
	mux.HandleFunc("GET /reports/dealer/sales.xlsx", dealer(h.handleDealerSalesExport))

	// живая лента дилера, токен приходит первым сообщением
	if h.ws != nil {
		mux.HandleFunc("GET /ws/dealer", h.ws)
	}

	h.log.Info(logger.Entry{
		Action:  "http_routes_registered",
		Message: "vehicle routes registered",
	})
}

// handleHealth обрабатывает health check
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// principal достает principal, положенный auth middleware
func (h *HTTPHandler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "unauthorized", "")
		return auth.Principal{}, false
	}
	return p, true
}

// decode читает JSON тело и проверяет его тегами validate; пустое тело допустимо при allowEmpty
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if !allowEmpty {
				h.respondError(w, http.StatusBadRequest, "empty request body", "")
				return false
			}
		} else {
			h.log.Warn(logger.Entry{
				Action:    "parse_request_failed",
				Message:   err.Error(),
				RequestID: httpserver.RequestID(r.Context()),
			})
			h.respondError(w, http.StatusBadRequest, "invalid request format", "")
			return false
		}
	}

	if err := validate.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "validation")
		return false
	}
	return true
}

// handleUseCaseError переводит ошибки домена в HTTP статусы
func (h *HTTPHandler) handleUseCaseError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrExpired):
		h.respondError(w, http.StatusUnauthorized, err.Error(), "unauthenticated")
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, http.StatusForbidden, err.Error(), "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, domain.ErrConflict):
		h.respondError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, domain.ErrQuotaExceeded):
		h.respondError(w, http.StatusTooManyRequests, err.Error(), "quota_exceeded")
	case errors.Is(err, domain.ErrInvalidState):
		h.respondError(w, http.StatusConflict, err.Error(), "invalid_state")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, validate.ErrInvalid):
		h.respondError(w, http.StatusBadRequest, err.Error(), "validation")
	default:
		h.log.Error(logger.Entry{
			Action:    action + "_failed",
			Message:   err.Error(),
			RequestID: httpserver.RequestID(r.Context()),
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		h.respondError(w, http.StatusInternalServerError, "internal server error", "internal")
	}
}

// respondJSON отправляет JSON ответ
func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(logger.Entry{
			Action:  "encode_response_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}

// respondError отправляет JSON с ошибкой
func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message, code string) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
