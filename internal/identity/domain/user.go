package domain

import (
	"strings"
	"time"
	"unicode"

	"carmarket/internal/shared/auth"

	"github.com/google/uuid"
)

// Status — состояние аккаунта
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusBlocked   Status = "BLOCKED"
	StatusVerifying Status = "VERIFYING"
	StatusVerified  Status = "VERIFIED"
)

// User — учетная запись
type User struct {
	ID                       string     `json:"id"`
	Firstname                string     `json:"firstname"`
	Lastname                 string     `json:"lastname"`
	Gender                   string     `json:"gender"`
	Email                    string     `json:"email"`
	Username                 string     `json:"username"`
	PasswordHash             string     `json:"-"`
	MobileNo                 string     `json:"mobileNo"`
	Country                  string     `json:"country"`
	DateOfBirth              *time.Time `json:"dateOfBirth,omitempty"`
	Role                     auth.Role  `json:"role"`
	Status                   Status     `json:"-"`
	LoginAttempts            int        `json:"-"`
	IsBlocked                bool       `json:"-"`
	BlockedAt                *time.Time `json:"-"`
	LastBirthdayGreetingYear int        `json:"-"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// Registration — данные для создания аккаунта
type Registration struct {
	Firstname   string
	Lastname    string
	Gender      string
	Email       string
	Username    string
	MobileNo    string
	Country     string
	DateOfBirth *time.Time
}

// NewUser создает активного пользователя с ролью user
func NewUser(r Registration, passwordHash string, now time.Time) *User {
	return &User{
		ID:           uuid.NewString(),
		Firstname:    r.Firstname,
		Lastname:     r.Lastname,
		Gender:       r.Gender,
		Email:        NormalizeEmail(r.Email),
		Username:     r.Username,
		PasswordHash: passwordHash,
		MobileNo:     r.MobileNo,
		Country:      r.Country,
		DateOfBirth:  r.DateOfBirth,
		Role:         auth.RoleUser,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail приводит email к виду, в котором он хранится
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName — имя для писем
func (u *User) DisplayName() string {
	if u.Firstname != "" {
		return u.Firstname
	}
	return u.Username
}

// BlockedUntil возвращает момент снятия блокировки; false — аккаунт не заблокирован
func (u *User) BlockedUntil(d time.Duration) (time.Time, bool) {
	if !u.IsBlocked || u.BlockedAt == nil {
		return time.Time{}, false
	}
	return u.BlockedAt.Add(d), true
}

// ProfilePatch — частичное изменение профиля; nil поле не меняется
type ProfilePatch struct {
	Firstname   *string
	Lastname    *string
	Username    *string
	MobileNo    *string
	Country     *string
	DateOfBirth *time.Time
	Email       *string
}

// Apply применяет изменения профиля
func (u *User) Apply(p ProfilePatch, now time.Time) {
	if p.Firstname != nil {
		u.Firstname = *p.Firstname
	}
	if p.Lastname != nil {
		u.Lastname = *p.Lastname
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.MobileNo != nil {
		u.MobileNo = *p.MobileNo
	}
	if p.Country != nil {
		u.Country = *p.Country
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		u.DateOfBirth = &dob
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	u.UpdatedAt = now
}

// ValidatePassword: минимум 8 символов, заглавная, строчная, цифра и спецсимвол
func ValidatePassword(pw string) error {
	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}

// BirthdayMatches сравнивает месяц и день рождения с датой.
// Родившиеся 29 февраля поздравляются 28 февраля в невисокосный год.
func BirthdayMatches(dob, day time.Time) bool {
	if dob.Month() == day.Month() && dob.Day() == day.Day() {
		return true
	}
	return dob.Month() == time.February && dob.Day() == 29 &&
		day.Month() == time.February && day.Day() == 28 && !isLeap(day.Year())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
