package usecase

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"

	"github.com/shopspring/decimal"
)

// UserReportService реализует UserReportUseCase
type UserReportService struct {
	cars     out.CarRepository
	ledger   out.LedgerRepository
	bookings out.BookingRepository
	log      *logger.Logger
}

// NewUserReportService создает сервис отчета пользователя
func NewUserReportService(cars out.CarRepository, ledger out.LedgerRepository, bookings out.BookingRepository, log *logger.Logger) *UserReportService {
	return &UserReportService{cars: cars, ledger: ledger, bookings: bookings, log: log}
}

// Execute собирает сделки, тест-драйвы и текущие автомобили; сам пользователь или дилер
func (s *UserReportService) Execute(ctx context.Context, input in.UserReportInput) (*in.UserReport, error) {
	p := input.Principal
	if !p.IsDealer() && !p.Owns(input.UserID) {
		return nil, domain.ErrForbidden
	}

	txs, err := s.ledger.ListByParty(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	drives, err := s.bookings.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("list test drives: %w", err)
	}
	cars, err := s.cars.ListByOwner(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("list owned cars: %w", err)
	}

	txs = transactionsIn(txs, input.Period)
	drives = bookingsIn(drives, input.Period)

	report := &in.UserReport{
		UserID:       input.UserID,
		Transactions: txs,
		TestDrives:   drives,
		CurrentCars:  cars,
		Summary: in.UserSummary{
			TotalSpent:          decimal.Zero,
			TotalEarned:         decimal.Zero,
			TestDrivesScheduled: len(drives),
			CurrentCarsCount:    len(cars),
		},
	}
	for _, tx := range txs {
		switch input.UserID {
		case tx.Buyer.ID:
			report.Summary.TotalBought++
			report.Summary.TotalSpent = report.Summary.TotalSpent.Add(tx.Price)
		case tx.Seller.ID:
			report.Summary.TotalSold++
			report.Summary.TotalEarned = report.Summary.TotalEarned.Add(tx.Price)
		}
	}
	return report, nil
}

// DealerReportService реализует DealerReportUseCase
type DealerReportService struct {
	cars       out.CarRepository
	ledger     out.LedgerRepository
	bookings   out.BookingRepository
	dealerName string
	log        *logger.Logger
}

// NewDealerReportService создает сервис отчета дилера
func NewDealerReportService(
	cars out.CarRepository,
	ledger out.LedgerRepository,
	bookings out.BookingRepository,
	dealerName string,
	log *logger.Logger,
) *DealerReportService {
	return &DealerReportService{cars: cars, ledger: ledger, bookings: bookings, dealerName: dealerName, log: log}
}

// Execute: продажи и выкупы основного дилера, тест-драйвы его центра и склад
func (s *DealerReportService) Execute(ctx context.Context, input in.DealerReportInput) (*in.DealerReport, error) {
	if err := requireDealer(input.Principal); err != nil {
		return nil, err
	}

	dealer, err := s.cars.FindPrimaryDealer(ctx, s.dealerName)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.ListByParty(ctx, dealer.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	all, err := s.bookings.ListByStatus(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list test drives: %w", err)
	}
	inventory, err := s.cars.ListByOwner(ctx, dealer.ID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}

	drives := make([]*domain.Booking, 0, len(all))
	for _, b := range bookingsIn(all, input.Period) {
		if b.DealerName == s.dealerName {
			drives = append(drives, b)
		}
	}
	txs = transactionsIn(txs, input.Period)

	report := &in.DealerReport{
		Dealer:       *dealer,
		DealerName:   s.dealerName,
		Transactions: txs,
		TestDrives:   drives,
		Inventory:    inventory,
		Summary: in.DealerSummary{
			TotalRevenue:        decimal.Zero,
			TotalExpense:        decimal.Zero,
			TestDrivesScheduled: len(drives),
			CurrentInventory:    len(inventory),
		},
	}
	for _, tx := range txs {
		switch dealer.ID {
		case tx.Seller.ID:
			report.Summary.TotalSold++
			report.Summary.TotalRevenue = report.Summary.TotalRevenue.Add(tx.Price)
		case tx.Buyer.ID:
			report.Summary.TotalBought++
			report.Summary.TotalExpense = report.Summary.TotalExpense.Add(tx.Price)
		}
	}
	return report, nil
}

func transactionsIn(txs []*domain.Transaction, p in.Period) []*domain.Transaction {
	res := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if p.Contains(tx.CreatedAt) {
			res = append(res, tx)
		}
	}
	return res
}

func bookingsIn(list []*domain.Booking, p in.Period) []*domain.Booking {
	res := make([]*domain.Booking, 0, len(list))
	for _, b := range list {
		if p.Contains(b.At) {
			res = append(res, b)
		}
	}
	return res
}
