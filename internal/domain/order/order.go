package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the confirmed result of a checkout. It is emitted exactly once,
// on the transition into the confirmed stage, and owned by external
// persistence from then on.
type Order struct {
	ID        string
	UserID    string
	Items     []Item
	Total     decimal.Decimal
	Details   Details
	CreatedAt time.Time
}

// Item is a single line item of a confirmed order.
type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Details holds the shipping and payment information collected on the order
// form. Payment processing itself is external; the card fields are carried
// opaquely.
type Details struct {
	RecipientName string
	AddressLine1  string
	AddressLine2  string
	CardType      string
	CardNumber    string
	CardExpiry    string
}

// Complete reports whether all required order form fields are present.
// AddressLine2 is optional, matching the original order form.
func (d Details) Complete() bool {
	return d.RecipientName != "" &&
		d.AddressLine1 != "" &&
		d.CardType != "" &&
		d.CardNumber != "" &&
		d.CardExpiry != ""
}

// Repository defines persistence operations for confirmed orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
