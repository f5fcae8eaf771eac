package repo

import (
	"context"
	"errors"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const carColumns = `
	id, brand, model, year, color, price, details, spare_parts,
	current_owner_id, current_owner_type, current_owner_email, COALESCE(previous_owner_id, ''),
	status, available_for_test_drive, is_available_for_sale, dealer_name,
	created_at, updated_at`

// validID отсекает заведомо несуществующие идентификаторы до запроса к UUID-колонке
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(row rowScanner) (*domain.Car, error) {
	car := &domain.Car{}
	err := row.Scan(
		&car.ID,
		&car.Brand,
		&car.Model,
		&car.Year,
		&car.Color,
		&car.Price,
		&car.Details,
		&car.SpareParts,
		&car.CurrentOwnerID,
		&car.CurrentOwnerType,
		&car.CurrentOwnerEmail,
		&car.PreviousOwnerID,
		&car.Status,
		&car.AvailableForTestDrive,
		&car.IsAvailableForSale,
		&car.DealerName,
		&car.CreatedAt,
		&car.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return car, nil
}

func collectCars(rows pgx.Rows) ([]*domain.Car, error) {
	defer rows.Close()
	cars := []*domain.Car{}
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

// CarPgRepository — PostgreSQL репозиторий каталога автомобилей
type CarPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewCarPgRepository создает новый экземпляр репозитория
func NewCarPgRepository(pool *pgxpool.Pool, log *logger.Logger) *CarPgRepository {
	return &CarPgRepository{pool: pool, log: log}
}

// Create сохраняет новый автомобиль
func (r *CarPgRepository) Create(ctx context.Context, car *domain.Car) error {
	query := `
		INSERT INTO cars (
			id, brand, model, year, color, price, details, spare_parts,
			current_owner_id, current_owner_type, current_owner_email, previous_owner_id,
			status, available_for_test_drive, is_available_for_sale, dealer_name,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15, $16, $17, $18
		)
	`

	_, err := r.pool.Exec(ctx, query,
		car.ID,
		car.Brand,
		car.Model,
		car.Year,
		car.Color,
		car.Price,
		car.Details,
		sparePartsValue(car.SpareParts),
		car.CurrentOwnerID,
		car.CurrentOwnerType,
		car.CurrentOwnerEmail,
		car.PreviousOwnerID,
		car.Status,
		car.AvailableForTestDrive,
		car.IsAvailableForSale,
		car.DealerName,
		car.CreatedAt,
		car.UpdatedAt,
	)
	if err != nil {
		r.log.Error(logger.Entry{
			Action:  "db_create_car_failed",
			Message: err.Error(),
			CarID:   car.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return fmt.Errorf("insert car: %w", err)
	}
	return nil
}

// FindByID возвращает автомобиль по ID
func (r *CarPgRepository) FindByID(ctx context.Context, id string) (*domain.Car, error) {
	if !validID(id) {
		return nil, domain.ErrCarNotFound
	}
	car, err := scanCar(r.pool.QueryRow(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCarNotFound
		}
		return nil, fmt.Errorf("query car by id: %w", err)
	}
	return car, nil
}

// FindByBrand: сначала дилерские автомобили, открытые для тест-драйва, затем самые старые
func (r *CarPgRepository) FindByBrand(ctx context.Context, brand string) (*domain.Car, error) {
	query := `SELECT ` + carColumns + `
		FROM cars
		WHERE lower(brand) = lower($1)
		ORDER BY
			(current_owner_type = 'dealer' AND status = 'for_sale' AND available_for_test_drive) DESC,
			created_at ASC,
			id ASC
		LIMIT 1`

	car, err := scanCar(r.pool.QueryRow(ctx, query, brand))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCarNotFound
		}
		return nil, fmt.Errorf("query car by brand: %w", err)
	}
	return car, nil
}

// FindPrimaryDealer находит дилера по автомобилю, которым он владеет
func (r *CarPgRepository) FindPrimaryDealer(ctx context.Context, dealerName string) (*domain.Party, error) {
	query := `
		SELECT current_owner_id, current_owner_email
		FROM cars
		WHERE current_owner_type = 'dealer' AND dealer_name = $1
		ORDER BY created_at ASC
		LIMIT 1`

	p := &domain.Party{Type: domain.OwnerDealer}
	if err := r.pool.QueryRow(ctx, query, dealerName).Scan(&p.ID, &p.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDealerNotFound
		}
		return nil, fmt.Errorf("query primary dealer: %w", err)
	}
	return p, nil
}

// List возвращает страницу каталога и общее число автомобилей
func (r *CarPgRepository) List(ctx context.Context, limit, offset int) ([]*domain.Car, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM cars`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cars: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+carColumns+` FROM cars ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query cars: %w", err)
	}
	cars, err := collectCars(rows)
	if err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

// ListAvailable — дилерские автомобили, открытые для тест-драйва
func (r *CarPgRepository) ListAvailable(ctx context.Context) ([]*domain.Car, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+carColumns+`
		FROM cars
		WHERE current_owner_type = 'dealer' AND status = 'for_sale' AND available_for_test_drive
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query available cars: %w", err)
	}
	return collectCars(rows)
}

// ListByOwner — автомобили текущего владельца
func (r *CarPgRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+carColumns+` FROM cars WHERE current_owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query cars by owner: %w", err)
	}
	return collectCars(rows)
}

// Update меняет только описательные поля
func (r *CarPgRepository) Update(ctx context.Context, car *domain.Car) error {
	if !validID(car.ID) {
		return domain.ErrCarNotFound
	}
	query := `
		UPDATE cars SET
			brand = $2,
			model = $3,
			year = $4,
			color = $5,
			price = $6,
			details = $7,
			spare_parts = $8,
			updated_at = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		car.ID,
		car.Brand,
		car.Model,
		car.Year,
		car.Color,
		car.Price,
		car.Details,
		sparePartsValue(car.SpareParts),
		car.UpdatedAt,
	)
	if err != nil {
		r.log.Error(logger.Entry{
			Action:  "db_update_car_failed",
			Message: err.Error(),
			CarID:   car.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return fmt.Errorf("update car: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

// Delete удаляет автомобиль; журнал и записи остаются
func (r *CarPgRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrCarNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

// Transfer — единица смены владельца: блокировка строки, проверка, запись журнала, обновление
func (r *CarPgRepository) Transfer(ctx context.Context, carID string, fn out.TransferFunc) (*domain.Car, *domain.Transaction, error) {
	if !validID(carID) {
		return nil, nil, domain.ErrCarNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transfer: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	car, err := scanCar(tx.QueryRow(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1 FOR UPDATE`, carID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrCarNotFound
		}
		return nil, nil, fmt.Errorf("lock car: %w", err)
	}

	record, err := fn(car)
	if err != nil {
		return nil, nil, err
	}

	if err := insertTransaction(ctx, tx, record); err != nil {
		r.log.Error(logger.Entry{
			Action:  "db_insert_transaction_failed",
			Message: err.Error(),
			CarID:   carID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE cars SET
			current_owner_id = $2,
			current_owner_type = $3,
			current_owner_email = $4,
			previous_owner_id = NULLIF($5, ''),
			status = $6,
			available_for_test_drive = $7,
			is_available_for_sale = $8,
			updated_at = $9
		WHERE id = $1`,
		car.ID,
		car.CurrentOwnerID,
		car.CurrentOwnerType,
		car.CurrentOwnerEmail,
		car.PreviousOwnerID,
		car.Status,
		car.AvailableForTestDrive,
		car.IsAvailableForSale,
		car.UpdatedAt,
	)
	if err != nil {
		r.log.Error(logger.Entry{
			Action:  "db_transfer_car_failed",
			Message: err.Error(),
			CarID:   carID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, nil, fmt.Errorf("update car owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transfer: %w", err)
	}
	return car, record, nil
}

func sparePartsValue(parts []string) []string {
	if parts == nil {
		return []string{}
	}
	return parts
}
