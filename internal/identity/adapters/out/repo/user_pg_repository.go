package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/identity/domain"
	db_conn "carmarket/internal/shared/db"
	"carmarket/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	emailIndex    = "users_email_uq"
	usernameIndex = "users_username_uq"
)

const userColumns = `
	id, firstname, lastname, gender, email, username, password_hash,
	mobile_no, country, date_of_birth, role, status, login_attempts,
	is_blocked, blocked_at, COALESCE(last_birthday_greeting_year, 0),
	created_at, updated_at`

// UserPgRepository — Postgres реализация UserRepository
type UserPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewUserPgRepository создает новый репозиторий пользователей
func NewUserPgRepository(pool *pgxpool.Pool, log *logger.Logger) *UserPgRepository {
	return &UserPgRepository{pool: pool, log: log}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID,
		&u.Firstname,
		&u.Lastname,
		&u.Gender,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.MobileNo,
		&u.Country,
		&u.DateOfBirth,
		&u.Role,
		&u.Status,
		&u.LoginAttempts,
		&u.IsBlocked,
		&u.BlockedAt,
		&u.LastBirthdayGreetingYear,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// uniqueErr переводит нарушение уникального индекса в доменную ошибку
func uniqueErr(err error) error {
	switch {
	case db_conn.IsUniqueViolation(err, emailIndex):
		return domain.ErrEmailTaken
	case db_conn.IsUniqueViolation(err, usernameIndex):
		return domain.ErrUsernameTaken
	}
	return nil
}

// Create сохраняет нового пользователя
func (r *UserPgRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, firstname, lastname, gender, email, username, password_hash,
			mobile_no, country, date_of_birth, role, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.ID,
		u.Firstname,
		u.Lastname,
		u.Gender,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.MobileNo,
		u.Country,
		u.DateOfBirth,
		u.Role,
		u.Status,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if derr := uniqueErr(err); derr != nil {
			return derr
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserPgRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrUserNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByEmail ищет без учета регистра
func (r *UserPgRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, domain.NormalizeEmail(email)))
}

// UpdateProfile сохраняет изменяемые пользователем поля
func (r *UserPgRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			firstname = $2, lastname = $3, username = $4, mobile_no = $5,
			country = $6, date_of_birth = $7, email = $8, updated_at = $9
		WHERE id = $1`,
		u.ID,
		u.Firstname,
		u.Lastname,
		u.Username,
		u.MobileNo,
		u.Country,
		u.DateOfBirth,
		u.Email,
		u.UpdatedAt,
	)
	if err != nil {
		if derr := uniqueErr(err); derr != nil {
			return derr
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserPgRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	return r.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, at)
}

func (r *UserPgRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	return r.execOne(ctx, "update status",
		`UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
}

// RecordFailedLogin: строка блокируется UPDATE, поэтому лимит достигает ровно одна попытка
func (r *UserPgRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, at time.Time) (*out.FailedLogin, error) {
	res := &out.FailedLogin{}
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET
			login_attempts = login_attempts + 1,
			is_blocked = is_blocked OR login_attempts + 1 >= $2,
			blocked_at = CASE WHEN NOT is_blocked AND login_attempts + 1 >= $2 THEN $3 ELSE blocked_at END,
			status = CASE WHEN NOT is_blocked AND login_attempts + 1 >= $2 THEN 'BLOCKED' ELSE status END,
			updated_at = $3
		WHERE id = $1
		RETURNING login_attempts, is_blocked`, id, maxAttempts, at).Scan(&res.Attempts, &res.Blocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("record failed login: %w", err)
	}
	res.JustBlocked = res.Blocked && res.Attempts == maxAttempts
	return res, nil
}

func (r *UserPgRepository) ResetLogin(ctx context.Context, id string, status domain.Status, at time.Time) error {
	return r.execOne(ctx, "reset login", `
		UPDATE users SET
			login_attempts = 0, is_blocked = FALSE, blocked_at = NULL,
			status = $2, updated_at = $3
		WHERE id = $1`, id, status, at)
}

func (r *UserPgRepository) UnblockExpired(ctx context.Context, before, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			login_attempts = 0, is_blocked = FALSE, blocked_at = NULL,
			status = 'ACTIVE', updated_at = $2
		WHERE is_blocked AND blocked_at <= $1`, before, at)
	if err != nil {
		return 0, fmt.Errorf("unblock expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListBirthdays: родившиеся 29 февраля попадают в выборку 28 февраля невисокосного года
func (r *UserPgRepository) ListBirthdays(ctx context.Context, day time.Time) ([]*domain.User, error) {
	leapFallback := day.Month() == time.February && day.Day() == 28 && day.AddDate(0, 0, 1).Month() == time.March

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+`
		FROM users
		WHERE date_of_birth IS NOT NULL
		  AND COALESCE(last_birthday_greeting_year, 0) < $3
		  AND (
			(EXTRACT(MONTH FROM date_of_birth) = $1 AND EXTRACT(DAY FROM date_of_birth) = $2)
			OR ($4 AND EXTRACT(MONTH FROM date_of_birth) = 2 AND EXTRACT(DAY FROM date_of_birth) = 29)
		  )
		ORDER BY created_at, id`, int(day.Month()), day.Day(), day.Year(), leapFallback)
	if err != nil {
		return nil, fmt.Errorf("query birthdays: %w", err)
	}
	defer rows.Close()

	list := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// ClaimBirthday условно проставляет год поздравления
func (r *UserPgRepository) ClaimBirthday(ctx context.Context, id string, year int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET last_birthday_greeting_year = $2
		WHERE id = $1 AND COALESCE(last_birthday_greeting_year, 0) < $2`, id, year)
	if err != nil {
		return false, fmt.Errorf("claim birthday: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserPgRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
