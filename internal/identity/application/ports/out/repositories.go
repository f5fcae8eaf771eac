package out

import (
	"context"
	"time"

	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/notify"
)

// FailedLogin — результат учета неудачной попытки входа
type FailedLogin struct {
	Attempts int
	Blocked  bool
	// JustBlocked истинно ровно для той попытки, что достигла лимита
	JustBlocked bool
}

// UserRepository — хранилище пользователей
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error

	// RecordFailedLogin атомарно увеличивает счетчик и блокирует аккаунт на maxAttempts
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, at time.Time) (*FailedLogin, error)
	// ResetLogin обнуляет счетчик, снимает блокировку и выставляет статус
	ResetLogin(ctx context.Context, id string, status domain.Status, at time.Time) error
	// UnblockExpired снимает блокировки, поставленные до before
	UnblockExpired(ctx context.Context, before, at time.Time) (int64, error)

	// ListBirthdays — пользователи с днем рождения в day, еще не поздравленные в этом году
	ListBirthdays(ctx context.Context, day time.Time) ([]*domain.User, error)
	// ClaimBirthday условно проставляет год поздравления; false — уже поздравлен
	ClaimBirthday(ctx context.Context, id string, year int) (bool, error)
}

// OTPStore хранит одноразовые коды с TTL
type OTPStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Consume сравнивает код и удаляет его при совпадении;
	// после лимита промахов код сжигается и верный код тоже отвергается
	Consume(ctx context.Context, email, code string) (bool, error)
}

// Notifier отправляет письма; ошибка только логируется
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// TokenIssuer выпускает JWT
type TokenIssuer interface {
	GenerateToken(userID, email string, role auth.Role) (string, error)
}
