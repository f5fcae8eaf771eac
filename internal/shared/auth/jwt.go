package auth

import (
	"errors"
	"fmt"
	"time"

	"carmarket/internal/shared/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims представляет JWT claims для нашей системы
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"` // user | admin
	jwt.RegisteredClaims
}

// JWTService работает с JWT токенами
type JWTService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTService создает новый сервис для работы с JWT
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		expiry: time.Duration(cfg.ExpiryMinutes) * time.Minute,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// GenerateToken создает новый JWT токен для пользователя
func (s *JWTService) GenerateToken(userID, email string, role Role) (string, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return "", err
	}

	now := s.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken проверяет токен и возвращает claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthenticated
	}

	return claims, nil
}

// Resolve превращает токен в Principal; неизвестная роль — ErrUnauthenticated
func (s *JWTService) Resolve(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, ErrUnauthenticated
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return Principal{}, err
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.UserID == "" {
		return Principal{}, ErrUnauthenticated
	}

	p := Principal{UserID: claims.UserID, Email: claims.Email, Role: role}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// ExtractUserID извлекает user_id и роль (для WebSocket авторизации)
func (s *JWTService) ExtractUserID(tokenString string) (userID, role string, err error) {
	p, err := s.Resolve(tokenString)
	if err != nil {
		return "", "", err
	}
	return p.UserID, string(p.Role), nil
}
