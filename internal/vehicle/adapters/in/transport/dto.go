package transport

import (
	"carmarket/internal/vehicle/domain"

	"github.com/shopspring/decimal"
)

// CarRequest — тело POST /cars и PATCH /cars/{id}
type CarRequest struct {
	Brand      string          `json:"brand" validate:"required,max=64"`
	Model      string          `json:"model" validate:"required,max=64"`
	Year       int             `json:"year" validate:"required,gte=1886,lte=2100"`
	Color      string          `json:"color" validate:"max=32"`
	Price      decimal.Decimal `json:"price"`
	Details    string          `json:"details" validate:"max=2000"`
	SpareParts []string        `json:"spareParts" validate:"max=50,dive,max=128"`
}

func (r CarRequest) attributes() domain.CarAttributes {
	return domain.CarAttributes{
		Brand:      r.Brand,
		Model:      r.Model,
		Year:       r.Year,
		Color:      r.Color,
		Price:      r.Price,
		Details:    r.Details,
		SpareParts: r.SpareParts,
	}
}

// CreateBookingRequest — тело POST /test-drives; нужен carId или carBrand
type CreateBookingRequest struct {
	CarID         string `json:"carId" validate:"required_without=CarBrand,omitempty,uuid"`
	CarBrand      string `json:"carBrand" validate:"required_without=CarID,omitempty,max=64"`
	ScheduledDate string `json:"scheduledDate" validate:"required,ymd"`
	ScheduledTime string `json:"scheduledTime" validate:"required,hhmm"`
}

// RescheduleRequest — тело PATCH /test-drives/{id}/reschedule
type RescheduleRequest struct {
	ScheduledDate string `json:"scheduledDate" validate:"required,ymd"`
	ScheduledTime string `json:"scheduledTime" validate:"required,hhmm"`
}

// CancelRequest — необязательное тело DELETE /test-drives/{id}
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ErrorResponse — единый формат ошибки
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
