package repo

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `
	id, car_id, car_brand, car_model,
	seller_id, seller_type, seller_email,
	buyer_id, buyer_type, buyer_email,
	transaction_type, price, created_at`

// LedgerPgRepository — чтение журнала сделок; запись идет внутри CarPgRepository.Transfer
type LedgerPgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewLedgerPgRepository создает новый экземпляр репозитория
func NewLedgerPgRepository(pool *pgxpool.Pool, log *logger.Logger) *LedgerPgRepository {
	return &LedgerPgRepository{pool: pool, log: log}
}

// ListByParty — сделки, где сторона была продавцом или покупателем
func (r *LedgerPgRepository) ListByParty(ctx context.Context, partyID string) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+`
		FROM car_transactions
		WHERE seller_id = $1 OR buyer_id = $1
		ORDER BY created_at, id`, partyID)
	if err != nil {
		return nil, fmt.Errorf("query transactions by party: %w", err)
	}
	return collectTransactions(rows)
}

// ListByCar — история автомобиля в порядке записи
func (r *LedgerPgRepository) ListByCar(ctx context.Context, carID string) ([]*domain.Transaction, error) {
	if !validID(carID) {
		return []*domain.Transaction{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+`
		FROM car_transactions
		WHERE car_id = $1
		ORDER BY created_at, id`, carID)
	if err != nil {
		return nil, fmt.Errorf("query transactions by car: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()
	list := []*domain.Transaction{}
	for rows.Next() {
		t := &domain.Transaction{}
		if err := rows.Scan(
			&t.ID,
			&t.CarID,
			&t.CarBrand,
			&t.CarModel,
			&t.Seller.ID,
			&t.Seller.Type,
			&t.Seller.Email,
			&t.Buyer.ID,
			&t.Buyer.Type,
			&t.Buyer.Email,
			&t.TransactionType,
			&t.Price,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO car_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID,
		t.CarID,
		t.CarBrand,
		t.CarModel,
		t.Seller.ID,
		t.Seller.Type,
		t.Seller.Email,
		t.Buyer.ID,
		t.Buyer.Type,
		t.Buyer.Email,
		t.TransactionType,
		t.Price,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
