package out_ws

import (
	"context"
	"encoding/json"

	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/out"
)

// broadcaster — часть ws.Hub, которой пользуется лента
type broadcaster interface {
	SendToRole(role string, message []byte) int
	SendToUser(userID string, message []byte) int
}

// BookingFeed пушит события записей дилерам и владельцу записи
type BookingFeed struct {
	hub broadcaster
	log *logger.Logger
}

// NewBookingFeed создает ленту поверх WebSocket hub
func NewBookingFeed(hub broadcaster, log *logger.Logger) *BookingFeed {
	return &BookingFeed{hub: hub, log: log}
}

// Publish не блокирует вызывающего: медленные клиенты теряют событие
func (f *BookingFeed) Publish(_ context.Context, evt out.BookingEvent) {
	if evt.Booking == nil {
		return
	}

	body, err := json.Marshal(evt)
	if err != nil {
		f.log.Error(logger.Entry{
			Action:    "ws_booking_event_marshal_failed",
			Message:   err.Error(),
			BookingID: evt.Booking.ID,
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	dealers := f.hub.SendToRole(string(auth.RoleAdmin), body)
	owner := f.hub.SendToUser(evt.Booking.UserID, body)

	f.log.Debug(logger.Entry{
		Action:    "ws_booking_event_sent",
		Message:   evt.Type,
		BookingID: evt.Booking.ID,
		CarID:     evt.Booking.CarID,
		Additional: map[string]any{
			"dealers": dealers,
			"owner":   owner,
		},
	})
}
