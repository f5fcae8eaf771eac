package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	db_conn "carmarket/internal/shared/db"
	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activeSlotIndex = "test_drives_active_slot_uq"

const bookingColumns = `
	id, car_id, car_brand, car_model,
	scheduled_date, scheduled_time, scheduled_at,
	status, is_rescheduled, user_id, email, dealer_name, dealer_address,
	COALESCE(cancellation_reason, ''), reminder_24h_sent_at, reminder_12h_sent_at,
	created_at, updated_at`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID,
		&b.CarID,
		&b.CarBrand,
		&b.CarModel,
		&b.Date,
		&b.Time,
		&b.At,
		&b.Status,
		&b.IsRescheduled,
		&b.UserID,
		&b.Email,
		&b.DealerName,
		&b.DealerAddress,
		&b.CancellationReason,
		&b.Reminder24hSentAt,
		&b.Reminder12hSentAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]*domain.Booking, error) {
	defer rows.Close()
	list := []*domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// BookingPgRepository — PostgreSQL репозиторий записей на тест-драйв
type BookingPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewBookingPgRepository создает новый экземпляр репозитория
func NewBookingPgRepository(pool *pgxpool.Pool, log *logger.Logger) *BookingPgRepository {
	return &BookingPgRepository{pool: pool, log: log}
}

// Reserve: блокировка автомобиля, затем пользователя, подсчет занятости и вставка в одной транзакции
func (r *BookingPgRepository) Reserve(ctx context.Context, b *domain.Booking, policy domain.AdmissionPolicy, quotaSince time.Time) error {
	if !validID(b.CarID) {
		return domain.ErrCarNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := lockOpenCar(ctx, tx, b.CarID); err != nil {
		return err
	}

	// квота считается по пользователю, поэтому параллельные записи одного пользователя
	// на разные автомобили сериализуются отдельно
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.UserID); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	var counts domain.AdmissionCounts
	err = tx.QueryRow(ctx, `
		SELECT
			EXISTS (
				SELECT 1 FROM test_drives
				WHERE car_id = $1 AND scheduled_date = $2 AND scheduled_time = $3
				  AND status IN ('Pending', 'Confirmed')
			),
			(SELECT count(*) FROM test_drives
				WHERE car_id = $1 AND scheduled_date = $2
				  AND status IN ('Pending', 'Confirmed')),
			(SELECT count(*) FROM test_drives
				WHERE user_id = $4 AND created_at >= $5
				  AND status IN ('Pending', 'Confirmed'))`,
		b.CarID, b.Date, b.Time, b.UserID, quotaSince,
	).Scan(&counts.SlotTaken, &counts.ActiveOnDay, &counts.UserActiveRecent)
	if err != nil {
		return fmt.Errorf("count bookings: %w", err)
	}

	if err := policy.Admit(counts); err != nil {
		return err
	}

	if err := insertBooking(ctx, tx, b); err != nil {
		if db_conn.IsUniqueViolation(err, activeSlotIndex) {
			return domain.ErrSlotTaken
		}
		r.log.Error(logger.Entry{
			Action:    "db_create_booking_failed",
			Message:   err.Error(),
			CarID:     b.CarID,
			BookingID: b.ID,
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if db_conn.IsUniqueViolation(err, activeSlotIndex) {
			return domain.ErrSlotTaken
		}
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

func lockOpenCar(ctx context.Context, tx pgx.Tx, carID string) error {
	var (
		ownerType domain.OwnerType
		status    domain.CarStatus
		testDrive bool
	)
	err := tx.QueryRow(ctx, `
		SELECT current_owner_type, status, available_for_test_drive
		FROM cars WHERE id = $1 FOR UPDATE`, carID,
	).Scan(&ownerType, &status, &testDrive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCarNotFound
		}
		return fmt.Errorf("lock car: %w", err)
	}
	if ownerType != domain.OwnerDealer || status != domain.CarForSale || !testDrive {
		return domain.ErrNotOpenForTestDrive
	}
	return nil
}

func insertBooking(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO test_drives (
			id, car_id, car_brand, car_model,
			scheduled_date, scheduled_time, scheduled_at,
			status, is_rescheduled, user_id, email, dealer_name, dealer_address,
			cancellation_reason, reminder_24h_sent_at, reminder_12h_sent_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), $15, $16, $17, $18
		)`,
		b.ID,
		b.CarID,
		b.CarBrand,
		b.CarModel,
		b.Date,
		b.Time,
		b.At,
		b.Status,
		b.IsRescheduled,
		b.UserID,
		b.Email,
		b.DealerName,
		b.DealerAddress,
		b.CancellationReason,
		b.Reminder24hSentAt,
		b.Reminder12hSentAt,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// FindByID возвращает запись по ID
func (r *BookingPgRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	if !validID(id) {
		return nil, domain.ErrBookingNotFound
	}
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM test_drives WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("query booking by id: %w", err)
	}
	return b, nil
}

// Mutate блокирует автомобиль и запись (в этом порядке, как и Reserve), применяет fn и сохраняет
func (r *BookingPgRepository) Mutate(ctx context.Context, id string, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	return r.mutate(ctx, id, nil, fn)
}

// Reschedule — Mutate, в котором новый слот проходит и дневной лимит автомобиля
func (r *BookingPgRepository) Reschedule(ctx context.Context, id string, policy domain.AdmissionPolicy, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	return r.mutate(ctx, id, &policy, fn)
}

func (r *BookingPgRepository) mutate(ctx context.Context, id string, policy *domain.AdmissionPolicy, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	if !validID(id) {
		return nil, domain.ErrBookingNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mutate: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var carID string
	if err := tx.QueryRow(ctx, `SELECT car_id FROM test_drives WHERE id = $1`, id).Scan(&carID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("query booking car: %w", err)
	}

	// автомобиль мог быть удален; запись при этом остается доступной для отмены
	if _, err := tx.Exec(ctx, `SELECT 1 FROM cars WHERE id = $1 FOR UPDATE`, carID); err != nil {
		return nil, fmt.Errorf("lock car: %w", err)
	}

	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM test_drives WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("lock booking: %w", err)
	}

	prev := b.Slot
	if err := fn(b); err != nil {
		return nil, err
	}

	if b.Status.Active() && (b.Date != prev.Date || b.Time != prev.Time) {
		var counts domain.AdmissionCounts
		err := tx.QueryRow(ctx, `
			SELECT
				EXISTS (
					SELECT 1 FROM test_drives
					WHERE car_id = $1 AND scheduled_date = $2 AND scheduled_time = $3
					  AND status IN ('Pending', 'Confirmed') AND id <> $4
				),
				(SELECT count(*) FROM test_drives
					WHERE car_id = $1 AND scheduled_date = $2
					  AND status IN ('Pending', 'Confirmed') AND id <> $4)`,
			b.CarID, b.Date, b.Time, b.ID,
		).Scan(&counts.SlotTaken, &counts.ActiveOnDay)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if policy != nil {
			if err := policy.AdmitMove(counts); err != nil {
				return nil, err
			}
		} else if counts.SlotTaken {
			return nil, domain.ErrSlotTaken
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE test_drives SET
			scheduled_date = $2,
			scheduled_time = $3,
			scheduled_at = $4,
			status = $5,
			is_rescheduled = $6,
			cancellation_reason = NULLIF($7, ''),
			reminder_24h_sent_at = $8,
			reminder_12h_sent_at = $9,
			updated_at = $10
		WHERE id = $1`,
		b.ID,
		b.Date,
		b.Time,
		b.At,
		b.Status,
		b.IsRescheduled,
		b.CancellationReason,
		b.Reminder24hSentAt,
		b.Reminder12hSentAt,
		b.UpdatedAt,
	)
	if err != nil {
		if db_conn.IsUniqueViolation(err, activeSlotIndex) {
			return nil, domain.ErrSlotTaken
		}
		r.log.Error(logger.Entry{
			Action:    "db_update_booking_failed",
			Message:   err.Error(),
			BookingID: id,
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("update booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mutate: %w", err)
	}
	return b, nil
}

// ListActiveByCar — Pending и Confirmed записи автомобиля
func (r *BookingPgRepository) ListActiveByCar(ctx context.Context, carID string) ([]*domain.Booking, error) {
	if !validID(carID) {
		return []*domain.Booking{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+`
		FROM test_drives
		WHERE car_id = $1 AND status IN ('Pending', 'Confirmed')
		ORDER BY scheduled_at`, carID)
	if err != nil {
		return nil, fmt.Errorf("query active bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListByUser — все записи пользователя
func (r *BookingPgRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+`
		FROM test_drives
		WHERE user_id = $1
		ORDER BY scheduled_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bookings by user: %w", err)
	}
	return collectBookings(rows)
}

// ListByStatus возвращает все записи, если status пустой
func (r *BookingPgRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+`
		FROM test_drives
		WHERE $1 = '' OR status = $1
		ORDER BY scheduled_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query bookings by status: %w", err)
	}
	return collectBookings(rows)
}

// ListConfirmedBetween — подтвержденные записи с моментом в (from, to]
func (r *BookingPgRepository) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+`
		FROM test_drives
		WHERE status = 'Confirmed' AND scheduled_at > $1 AND scheduled_at <= $2
		ORDER BY scheduled_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query confirmed bookings: %w", err)
	}
	return collectBookings(rows)
}

// ClaimReminder условно проставляет маркер напоминания
func (r *BookingPgRepository) ClaimReminder(ctx context.Context, id string, rem domain.Reminder, at time.Time) (bool, error) {
	var query string
	switch rem {
	case domain.Reminder24h:
		query = `
			UPDATE test_drives SET reminder_24h_sent_at = $2
			WHERE id = $1 AND status = 'Confirmed' AND reminder_24h_sent_at IS NULL`
	case domain.Reminder12h:
		query = `
			UPDATE test_drives SET
				reminder_12h_sent_at = $2,
				reminder_24h_sent_at = COALESCE(reminder_24h_sent_at, $2)
			WHERE id = $1 AND status = 'Confirmed' AND reminder_12h_sent_at IS NULL`
	default:
		return false, fmt.Errorf("unknown reminder %d", rem)
	}

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteElapsed переводит прошедшие подтвержденные записи в Completed
func (r *BookingPgRepository) CompleteElapsed(ctx context.Context, before, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE test_drives SET status = 'Completed', updated_at = $2
		WHERE status = 'Confirmed' AND scheduled_at < $1`, before, at)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed bookings: %w", err)
	}
	return tag.RowsAffected(), nil
}
