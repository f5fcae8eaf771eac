package domain

import (
	"errors"
	"fmt"
)

// Категории ошибок; транспорт сопоставляет их со статусами
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

var (
	// ErrUserNotFound пользователь не найден
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrEmailTaken email уже зарегистрирован
	ErrEmailTaken = fmt.Errorf("%w: email already in use", ErrConflict)

	// ErrUsernameTaken username уже занят
	ErrUsernameTaken = fmt.Errorf("%w: username already in use", ErrConflict)

	// ErrInvalidCredentials неверный email или пароль
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

	// ErrAccountBlocked аккаунт заблокирован после серии неудачных входов
	ErrAccountBlocked = fmt.Errorf("%w: account blocked due to too many failed login attempts", ErrUnauthorized)

	// ErrInvalidOTP код не совпал или истек
	ErrInvalidOTP = fmt.Errorf("%w: invalid or expired otp", ErrUnauthorized)

	// ErrSamePassword новый пароль совпадает со старым
	ErrSamePassword = fmt.Errorf("%w: new password must differ from the old one", ErrInvalidState)

	// ErrWeakPassword пароль не проходит требования сложности
	ErrWeakPassword = fmt.Errorf("%w: password must be at least 8 characters and include upper and lower case letters, a digit and a special character", ErrValidation)
)
