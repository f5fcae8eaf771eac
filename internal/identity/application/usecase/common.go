package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost — стоимость хеширования паролей; тесты понижают ее до MinCost
var bcryptCost = bcrypt.DefaultCost

const otpDigits = 6

// notifyTimeout ограничивает публикацию уведомления
const notifyTimeout = 5 * time.Second

type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generateOTP возвращает 6-значный код без ведущих нулей
func generateOTP() (string, error) {
	lo := int64(1)
	for i := 1; i < otpDigits; i++ {
		lo *= 10
	}
	n, err := rand.Int(rand.Reader, big.NewInt(9*lo))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+lo, 10), nil
}

// otpIssuer сохраняет код и отправляет его письмом
type otpIssuer struct {
	store    out.OTPStore
	notifier out.Notifier
	ttl      time.Duration
	log      *logger.Logger
}

func (o otpIssuer) issue(ctx context.Context, user *domain.User) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := o.store.Save(ctx, user.Email, code, o.ttl); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	sendBestEffort(ctx, o.notifier, o.log, notify.Message{
		To:   user.Email,
		Kind: notify.KindOTP,
		Fields: map[string]string{
			"name":        user.DisplayName(),
			"otp":         code,
			"ttl_minutes": strconv.Itoa(int(o.ttl / time.Minute)),
		},
	}, user.ID)
	return nil
}

// sendBestEffort отправляет уведомление после записи; ошибка только логируется
func sendBestEffort(ctx context.Context, n out.Notifier, log *logger.Logger, msg notify.Message, userID string) {
	if n == nil || msg.To == "" {
		return
	}
	// письмо не должно пропасть, если клиент отключился сразу после коммита
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := n.Send(sendCtx, msg); err != nil {
		log.Error(logger.Entry{
			Action:  "notification_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"kind":    string(msg.Kind),
				"user_id": userID,
			},
		})
	}
}
