package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthenticated токен отсутствует или недействителен
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrExpired срок действия токена истек
	ErrExpired = errors.New("token expired")

	// ErrInvalidRole роль не входит в закрытый набор
	ErrInvalidRole = errors.New("invalid role")
)

// Role — закрытый набор ролей
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin" // сотрудник дилерского центра
)

// ParseRole принимает только известные роли
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Principal — аутентифицированная личность, прикрепленная к запросу
type Principal struct {
	UserID    string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// IsDealer — право действовать от имени дилерского центра
func (p Principal) IsDealer() bool {
	return p.Role == RoleAdmin
}

// Owns проверяет, что ресурс принадлежит этому пользователю
func (p Principal) Owns(ownerID string) bool {
	return ownerID != "" && p.UserID == ownerID
}

type principalKey struct{}

// WithPrincipal кладет principal в контекст
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom достает principal из контекста
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
