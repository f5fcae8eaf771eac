package transport

import (
	"net/http"
	"strconv"

	"carmarket/internal/vehicle/application/ports/in"
)

// handleRegisterCar обрабатывает POST /cars
func (h *HTTPHandler) handleRegisterCar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CarRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	output, err := h.uc.RegisterCar.Execute(r.Context(), in.RegisterCarInput{
		Principal:  p,
		Attributes: req.attributes(),
	})
	if err != nil {
		h.handleUseCaseError(w, r, "register_car", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, output)
}

// handleListCars обрабатывает GET /cars?limit=&offset=
func (h *HTTPHandler) handleListCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	output, err := h.uc.ListCars.Execute(r.Context(), in.ListCarsInput{Limit: limit, Offset: offset})
	if err != nil {
		h.handleUseCaseError(w, r, "list_cars", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleListAvailableCars обрабатывает GET /cars/available
func (h *HTTPHandler) handleListAvailableCars(w http.ResponseWriter, r *http.Request) {
	output, err := h.uc.ListAvailableCars.Execute(r.Context())
	if err != nil {
		h.handleUseCaseError(w, r, "list_available_cars", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleGetCar обрабатывает GET /cars/{id}
func (h *HTTPHandler) handleGetCar(w http.ResponseWriter, r *http.Request) {
	output, err := h.uc.GetCar.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleUseCaseError(w, r, "get_car", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleUpdateCar обрабатывает PATCH /cars/{id}
func (h *HTTPHandler) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CarRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	output, err := h.uc.UpdateCar.Execute(r.Context(), in.UpdateCarInput{
		Principal:  p,
		CarID:      r.PathValue("id"),
		Attributes: req.attributes(),
	})
	if err != nil {
		h.handleUseCaseError(w, r, "update_car", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleDeleteCar обрабатывает DELETE /cars/{id}
func (h *HTTPHandler) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	err := h.uc.DeleteCar.Execute(r.Context(), in.DeleteCarInput{Principal: p, CarID: r.PathValue("id")})
	if err != nil {
		h.handleUseCaseError(w, r, "delete_car", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Car deleted successfully"})
}

// handleBuyCar обрабатывает PATCH /cars/{id}/buy
func (h *HTTPHandler) handleBuyCar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	output, err := h.uc.BuyCar.Execute(r.Context(), in.TransferInput{Principal: p, CarID: r.PathValue("id")})
	if err != nil {
		h.handleUseCaseError(w, r, "buy_car", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

// handleSellCar обрабатывает PATCH /cars/{id}/sell
func (h *HTTPHandler) handleSellCar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	output, err := h.uc.SellCar.Execute(r.Context(), in.TransferInput{Principal: p, CarID: r.PathValue("id")})
	if err != nil {
		h.handleUseCaseError(w, r, "sell_car", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}
