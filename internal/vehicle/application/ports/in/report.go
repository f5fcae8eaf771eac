package in

import (
	"context"
	"time"

	"carmarket/internal/shared/auth"
	"carmarket/internal/vehicle/domain"

	"github.com/shopspring/decimal"
)

// Period ограничивает отчет; нулевые границы не фильтруют
type Period struct {
	From time.Time
	To   time.Time
}

// Contains проверяет попадание момента в период (границы включены)
func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && t.After(p.To) {
		return false
	}
	return true
}

type UserReportInput struct {
	Principal auth.Principal
	UserID    string
	Period    Period
}

type UserSummary struct {
	TotalBought         int             `json:"totalBought"`
	TotalSold           int             `json:"totalSold"`
	TotalSpent          decimal.Decimal `json:"totalSpent"`
	TotalEarned         decimal.Decimal `json:"totalEarned"`
	TestDrivesScheduled int             `json:"testDrivesScheduled"`
	CurrentCarsCount    int             `json:"currentCarsCount"`
}

// UserReport — история пользователя
type UserReport struct {
	UserID       string                `json:"userId"`
	Transactions []*domain.Transaction `json:"transactions"`
	TestDrives   []*domain.Booking     `json:"testDrives"`
	CurrentCars  []*domain.Car         `json:"currentCars"`
	Summary      UserSummary           `json:"summary"`
}

type UserReportUseCase interface {
	Execute(ctx context.Context, input UserReportInput) (*UserReport, error)
}

type DealerReportInput struct {
	Principal auth.Principal
	Period    Period
}

type DealerSummary struct {
	TotalSold           int             `json:"totalSold"`
	TotalBought         int             `json:"totalBought"`
	TotalRevenue        decimal.Decimal `json:"totalRevenue"`
	TotalExpense        decimal.Decimal `json:"totalExpense"`
	TestDrivesScheduled int             `json:"testDrivesScheduled"`
	CurrentInventory    int             `json:"currentInventory"`
}

// DealerReport — продажи, выкупы, тест-драйвы и склад дилера
type DealerReport struct {
	Dealer       domain.Party          `json:"dealer"`
	DealerName   string                `json:"dealerName"`
	Transactions []*domain.Transaction `json:"transactions"`
	TestDrives   []*domain.Booking     `json:"testDrives"`
	Inventory    []*domain.Car         `json:"inventory"`
	Summary      DealerSummary         `json:"summary"`
}

type DealerReportUseCase interface {
	Execute(ctx context.Context, input DealerReportInput) (*DealerReport, error)
}
