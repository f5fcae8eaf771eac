package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerType — кто владеет автомобилем
type OwnerType string

const (
	OwnerUser   OwnerType = "user"
	OwnerDealer OwnerType = "dealer"
)

// CarStatus — статус автомобиля в каталоге
type CarStatus string

const (
	CarForSale CarStatus = "for_sale"
	CarSold    CarStatus = "sold"
)

// Party — сторона сделки или владелец
type Party struct {
	ID    string    `json:"id"`
	Type  OwnerType `json:"type"`
	Email string    `json:"email"`
}

// Car — автомобиль каталога.
// status = sold означает владельца-пользователя и закрытый тест-драйв.
type Car struct {
	ID                    string          `json:"id"`
	Brand                 string          `json:"brand"`
	Model                 string          `json:"model"`
	Year                  int             `json:"year"`
	Color                 string          `json:"color"`
	Price                 decimal.Decimal `json:"price"`
	Details               string          `json:"details"`
	SpareParts            []string        `json:"spareParts"`
	CurrentOwnerID        string          `json:"currentOwnerId"`
	CurrentOwnerType      OwnerType       `json:"currentOwnerType"`
	CurrentOwnerEmail     string          `json:"currentOwnerEmail"`
	PreviousOwnerID       string          `json:"previousOwnerId,omitempty"`
	Status                CarStatus       `json:"status"`
	AvailableForTestDrive bool            `json:"availableForTestDrive"`
	IsAvailableForSale    bool            `json:"isAvailableForSale"`
	DealerName            string          `json:"dealerName"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// CarAttributes — описательные поля, которые можно менять без смены владельца
type CarAttributes struct {
	Brand      string
	Model      string
	Year       int
	Color      string
	Price      decimal.Decimal
	Details    string
	SpareParts []string
}

// Validate проверяет описательные поля
func (a CarAttributes) Validate() error {
	if strings.TrimSpace(a.Brand) == "" || strings.TrimSpace(a.Model) == "" {
		return ErrInvalidCar
	}
	if a.Year < 1886 {
		return ErrInvalidCar
	}
	if a.Price.IsNegative() {
		return ErrInvalidCar
	}
	return nil
}

// NewCar регистрирует автомобиль.
// Дилер выставляет его на продажу; пользователь регистрирует свой, уже проданный ему.
func NewCar(attrs CarAttributes, owner Party, dealerName string, now time.Time) (*Car, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	car := &Car{
		ID:                uuid.NewString(),
		CurrentOwnerID:    owner.ID,
		CurrentOwnerType:  owner.Type,
		CurrentOwnerEmail: owner.Email,
		DealerName:        dealerName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	car.apply(attrs)

	switch owner.Type {
	case OwnerDealer:
		car.Status = CarForSale
		car.AvailableForTestDrive = true
		car.IsAvailableForSale = true
	case OwnerUser:
		car.Status = CarSold
	default:
		return nil, ErrInvalidCar
	}
	return car, nil
}

func (c *Car) apply(a CarAttributes) {
	c.Brand = strings.TrimSpace(a.Brand)
	c.Model = strings.TrimSpace(a.Model)
	c.Year = a.Year
	c.Color = a.Color
	c.Price = a.Price
	c.Details = a.Details
	c.SpareParts = append([]string(nil), a.SpareParts...)
}

// Update меняет только описательные поля
func (c *Car) Update(a CarAttributes, now time.Time) error {
	if err := a.Validate(); err != nil {
		return err
	}
	c.apply(a)
	c.UpdatedAt = now
	return nil
}

// Owner возвращает текущего владельца как сторону сделки
func (c *Car) Owner() Party {
	return Party{ID: c.CurrentOwnerID, Type: c.CurrentOwnerType, Email: c.CurrentOwnerEmail}
}

// PurchasableFromDealer — дилер владеет и автомобиль выставлен на продажу
func (c *Car) PurchasableFromDealer() bool {
	return c.CurrentOwnerType == OwnerDealer && c.Status == CarForSale
}

// OpenForTestDrive — на автомобиль можно записаться
func (c *Car) OpenForTestDrive() bool {
	return c.PurchasableFromDealer() && c.AvailableForTestDrive
}

// Purchase переводит автомобиль от дилера к покупателю и возвращает запись журнала
func (c *Car) Purchase(buyer Party, now time.Time) (*Transaction, error) {
	if !c.PurchasableFromDealer() {
		return nil, ErrNotForSale
	}
	tx := newTransaction(c, TransactionBuy, c.Owner(), buyer, now)

	c.PreviousOwnerID = c.CurrentOwnerID
	c.CurrentOwnerID = buyer.ID
	c.CurrentOwnerType = OwnerUser
	c.CurrentOwnerEmail = buyer.Email
	c.Status = CarSold
	c.AvailableForTestDrive = false
	c.IsAvailableForSale = false
	c.UpdatedAt = now
	return tx, nil
}

// SellToDealer возвращает автомобиль пользователя дилеру
func (c *Car) SellToDealer(seller, dealer Party, now time.Time) (*Transaction, error) {
	if c.CurrentOwnerType != OwnerUser || c.Status != CarSold || c.CurrentOwnerID != seller.ID {
		return nil, ErrNotOwner
	}
	if seller.Email == "" {
		seller.Email = c.CurrentOwnerEmail
	}
	tx := newTransaction(c, TransactionSell, seller, dealer, now)

	c.PreviousOwnerID = seller.ID
	c.CurrentOwnerID = dealer.ID
	c.CurrentOwnerType = OwnerDealer
	c.CurrentOwnerEmail = dealer.Email
	c.Status = CarForSale
	c.AvailableForTestDrive = true
	c.IsAvailableForSale = true
	c.UpdatedAt = now
	return tx, nil
}
