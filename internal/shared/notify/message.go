package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Kind — тип уведомления, определяет шаблон письма
type Kind string

const (
	KindBookingReceived    Kind = "booking_received"
	KindBookingConfirmed   Kind = "booking_confirmed"
	KindBookingRescheduled Kind = "booking_rescheduled"
	KindBookingCancelled   Kind = "booking_cancelled"
	KindDealerCancelled    Kind = "booking_cancelled_by_dealer"
	KindCarSoldApology     Kind = "booking_cancelled_car_sold"
	KindBookingReminder    Kind = "booking_reminder"
	KindCarPurchased       Kind = "car_purchased"
	KindCarSold            Kind = "car_sold"
	KindAccountBlocked     Kind = "account_blocked"
	KindOTP                Kind = "otp"
	KindPasswordChanged    Kind = "password_changed"
	KindBirthday           Kind = "birthday"
)

// ErrUnknownKind шаблон для типа не зарегистрирован
var ErrUnknownKind = errors.New("unknown notification kind")

// Message — запрос "отправить сообщение на адрес"
type Message struct {
	To     string            `json:"to"`
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Email — отрендеренное письмо
type Email struct {
	To      string
	Subject string
	Body    string
}

// Notifier — приемник уведомлений. Отправка best-effort: ошибка только логируется вызывающим.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type tmpl struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[Kind]tmpl{}

func register(kind Kind, subject, body string) {
	templates[kind] = tmpl{
		subject: template.Must(template.New(string(kind) + "_subject").Option("missingkey=error").Parse(subject)),
		body:    template.Must(template.New(string(kind) + "_body").Option("missingkey=error").Parse(body)),
	}
}

func init() {
	register(KindBookingReceived, "Test Drive Booking Received",
		`Thank you for booking a test drive of the {{.brand}} {{.model}} on {{.date}} at {{.time}}.
We will confirm your booking shortly.`)
	register(KindBookingConfirmed, "Test Drive Booking Confirmation",
		`Your test drive of the {{.brand}} {{.model}} is confirmed.
Date: {{.date}}
Time: {{.time}}
Dealer: {{.dealer_name}}
Address: {{.dealer_address}}`)
	register(KindBookingRescheduled, "Test Drive Rescheduled",
		`Your test drive of the {{.brand}} {{.model}} has been moved to {{.date}} at {{.time}}.`)
	register(KindBookingCancelled, "Test Drive Cancelled",
		`Your test drive of the {{.brand}} {{.model}} on {{.date}} at {{.time}} has been cancelled by you.
Reason: {{.reason}}`)
	register(KindDealerCancelled, "Test Drive Cancelled by Dealer",
		`We are sorry, your test drive of the {{.brand}} {{.model}} on {{.date}} at {{.time}} has been cancelled by the dealer.
Reason: {{.reason}}`)
	register(KindCarSoldApology, "Test Drive Cancellation Notice",
		`Your test drive of the {{.brand}} {{.model}} on {{.date}} at {{.time}} has been cancelled.
{{.reason}}`)
	register(KindBookingReminder, "Reminder: Your Test Drive is in {{.hours}} hours",
		`This is a reminder of your test drive of the {{.brand}} {{.model}} on {{.date}} at {{.time}}.
Dealer: {{.dealer_name}}, {{.dealer_address}}`)
	register(KindCarPurchased, "Car Purchase Confirmation",
		`Congratulations on purchasing the {{.brand}} {{.model}} for {{.price}}.
Transaction: {{.transaction_id}}`)
	register(KindCarSold, "Car Sold Confirmation",
		`Your {{.brand}} {{.model}} has been sold to {{.dealer_name}} for {{.price}}.
Transaction: {{.transaction_id}}`)
	register(KindAccountBlocked, "Your Account Has Been Blocked",
		`Hello {{.name}}, your account has been blocked after {{.attempts}} failed login attempts.
You can try again after {{.unblock_after}}.`)
	register(KindOTP, "Your One-Time Password",
		`Hello {{.name}}, your one-time password is {{.otp}}. It expires in {{.ttl_minutes}} minutes.`)
	register(KindPasswordChanged, "Your Password Was Changed",
		`Hello {{.name}}, the password of your account was changed.`)
	register(KindBirthday, "Happy Birthday!",
		`Happy birthday, {{.name}}! Best wishes from all of us.`)
}

// Render подставляет поля в шаблон; отсутствующее поле — ошибка
func Render(msg Message) (Email, error) {
	t, ok := templates[msg.Kind]
	if !ok {
		return Email{}, fmt.Errorf("%w: %s", ErrUnknownKind, msg.Kind)
	}
	fields := msg.Fields
	if fields == nil {
		fields = map[string]string{}
	}

	var subject, body strings.Builder
	if err := t.subject.Execute(&subject, fields); err != nil {
		return Email{}, fmt.Errorf("render subject %s: %w", msg.Kind, err)
	}
	if err := t.body.Execute(&body, fields); err != nil {
		return Email{}, fmt.Errorf("render body %s: %w", msg.Kind, err)
	}
	return Email{To: msg.To, Subject: subject.String(), Body: body.String()}, nil
}

// Kinds возвращает все зарегистрированные типы в стабильном порядке
func Kinds() []Kind {
	out := make([]Kind, 0, len(templates))
	for k := range templates {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
