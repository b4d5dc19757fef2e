package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// TaxRate applied to the cart subtotal.
	TaxRate = decimal.RequireFromString("0.08")
	// DeliveryFee is the flat fee added to every cart total.
	DeliveryFee = decimal.RequireFromString("5.00")
)

// Cart is the per-customer staging area. All items belong to one restaurant.
type Cart struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	UserID      string          `json:"userId" gorm:"uniqueIndex;not null"`
	Restaurant  *string         `json:"restaurant"`
	Items       []CartItem      `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2)"`
	Tax         decimal.Decimal `json:"tax" gorm:"type:decimal(10,2)"`
	DeliveryFee decimal.Decimal `json:"deliveryFee" gorm:"type:decimal(10,2)"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(10,2)"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type CartItem struct {
	ID       string          `json:"id" gorm:"primaryKey;size:36"`
	CartID   string          `json:"-" gorm:"index;not null"`
	Position int             `json:"-"`
	FoodID   string          `json:"foodId" gorm:"not null"`
	Quantity int             `json:"quantity" gorm:"not null"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Notes    string          `json:"notes"`
}

// EmptyCart is the view returned for a customer without a stored cart.
func EmptyCart(userID string) *Cart {
	c := &Cart{UserID: userID, Items: []CartItem{}}
	c.Recalculate()
	return c
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave recomputes totals so stored figures never drift from the items.
func (c *Cart) BeforeSave(*gorm.DB) error {
	c.Recalculate()
	return nil
}

// Recalculate derives subtotal, tax, fee and total from the items.
func (c *Cart) Recalculate() {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.Subtotal = subtotal.Round(2)
	c.Tax = c.Subtotal.Mul(TaxRate).Round(2)
	c.DeliveryFee = DeliveryFee
	c.Total = c.Subtotal.Add(c.Tax).Add(c.DeliveryFee)
}

// ItemCount is the sum of item quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// FindItem returns the index of the item with id, or -1.
func (c *Cart) FindItem(id string) int {
	for i, item := range c.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
