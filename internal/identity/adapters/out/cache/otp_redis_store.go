package cache

import (
	"context"
	"fmt"
	"time"

	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"

	"github.com/go-redis/redis/v8"
)

// Результаты consumeScript; 0 — промах
const (
	otpAccepted = 1
	otpBurned   = 2
)

// consumeScript гасит код при совпадении. Промахи считаются в отдельном ключе
// с тем же TTL; на ARGV[2]-м промахе код удаляется вместе со счетчиком.
var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
	return 0
end
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
local misses = redis.call("INCR", KEYS[2])
if misses == 1 then
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl > 0 then
		redis.call("PEXPIRE", KEYS[2], ttl)
	end
end
if misses >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 2
end
return 0
`)

// OTPRedisStore — хранилище одноразовых кодов в Redis с TTL и лимитом попыток
type OTPRedisStore struct {
	client      redis.UniversalClient
	maxAttempts int
	log         *logger.Logger
}

// NewOTPRedisStore создает хранилище OTP; maxAttempts < 1 трактуется как 1
func NewOTPRedisStore(client redis.UniversalClient, maxAttempts int, log *logger.Logger) *OTPRedisStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OTPRedisStore{client: client, maxAttempts: maxAttempts, log: log}
}

// ключи в одном hash slot, чтобы скрипт работал и в Redis Cluster
func otpKeys(email string) []string {
	tag := "{" + domain.NormalizeEmail(email) + "}"
	return []string{"otp:" + tag, "otp:attempts:" + tag}
}

// Save перезаписывает код пользователя и обнуляет счетчик промахов
func (s *OTPRedisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	keys := otpKeys(email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keys[0], code, ttl)
		pipe.Del(ctx, keys[1])
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set otp: %w", err)
	}
	return nil
}

// Consume сравнивает код и гасит его; false — код не совпал, истек или сожжен
func (s *OTPRedisStore) Consume(ctx context.Context, email, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	res, err := consumeScript.Run(ctx, s.client, otpKeys(email), code, s.maxAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("redis consume otp: %w", err)
	}

	switch res {
	case otpAccepted:
		return true, nil
	case otpBurned:
		s.log.Warn(logger.Entry{
			Action:     "otp_burned",
			Message:    "too many wrong otp attempts, code revoked",
			Additional: map[string]any{"max_attempts": s.maxAttempts},
		})
	default:
		s.log.Debug(logger.Entry{Action: "otp_mismatch", Message: "otp missing or different"})
	}
	return false, nil
}
