package transport

import (
	"time"

	"carmarket/internal/identity/domain"
)

const dateLayout = "2006-01-02"

// RegisterRequest — тело POST /users/register
type RegisterRequest struct {
	Firstname   string `json:"firstname" validate:"required,min=2,max=64"`
	Lastname    string `json:"lastname" validate:"required,min=2,max=64"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Username    string `json:"username" validate:"required,min=3,max=32"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	MobileNo    string `json:"mobileNo" validate:"required,mobile"`
	Country     string `json:"country" validate:"omitempty,max=64"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,ymd"`
}

func (r RegisterRequest) registration() (domain.Registration, error) {
	dob, err := parseDate(r.DateOfBirth)
	if err != nil {
		return domain.Registration{}, err
	}
	return domain.Registration{
		Firstname:   r.Firstname,
		Lastname:    r.Lastname,
		Gender:      r.Gender,
		Email:       r.Email,
		Username:    r.Username,
		MobileNo:    r.MobileNo,
		Country:     r.Country,
		DateOfBirth: dob,
	}, nil
}

// LoginRequest — тело POST /users/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest — тело POST /users/verify-otp
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// EmailRequest — тело POST /users/resend-otp и /users/forgot-password
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest — тело POST /users/reset-password
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// ChangePasswordRequest — тело POST /users/change-password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// UpdateProfileRequest — тело PATCH /users/me; отсутствующие поля не меняются
type UpdateProfileRequest struct {
	Firstname   *string `json:"firstname" validate:"omitempty,min=2,max=64"`
	Lastname    *string `json:"lastname" validate:"omitempty,min=2,max=64"`
	Username    *string `json:"username" validate:"omitempty,min=3,max=32"`
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	MobileNo    *string `json:"mobileNo" validate:"omitempty,mobile"`
	Country     *string `json:"country" validate:"omitempty,max=64"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,ymd"`
}

func (r UpdateProfileRequest) patch() (domain.ProfilePatch, error) {
	p := domain.ProfilePatch{
		Firstname: r.Firstname,
		Lastname:  r.Lastname,
		Username:  r.Username,
		Email:     r.Email,
		MobileNo:  r.MobileNo,
		Country:   r.Country,
	}
	if r.DateOfBirth != nil {
		dob, err := parseDate(*r.DateOfBirth)
		if err != nil {
			return domain.ProfilePatch{}, err
		}
		p.DateOfBirth = dob
	}
	return p, nil
}

// ErrorResponse — тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// parseDate: ymd пропускает 2026-02-31, поэтому календарь проверяется здесь
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
