package cart

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrInvalidQuantity is returned when an add or update carries a quantity
// outside the allowed range (add: >= 1, set: >= 0).
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// LineNotFoundError indicates a quantity update targeted a product that has
// no line in the cart.
type LineNotFoundError struct {
	ProductID string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("no cart line for product %s", e.ProductID)
}

// Line is one (product, quantity) pair within a cart. A resting line always
// has Quantity >= 1; quantity zero means the line is removed, never stored.
type Line struct {
	ProductID string
	Quantity  int
}

// Cart holds the line items of a single session. It is not safe for
// concurrent use; Store serializes access per session key.
//
// Invariants maintained by every mutation:
//   - no two lines share a product ID
//   - every line has quantity >= 1
//
// The cart never caches a total: pricing is always recomputed from the
// current lines and catalog prices.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem adds qty units of the product to the cart. If a line for the
// product already exists its quantity is incremented, otherwise a new line
// is appended. qty must be >= 1.
func (c *Cart) AddItem(productID string, qty int) error {
	if qty < 1 {
		return errors.Wrapf(ErrInvalidQuantity, "add %d of product %s", qty, productID)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity += qty
			return nil
		}
	}
	c.lines = append(c.lines, Line{ProductID: productID, Quantity: qty})
	return nil
}

// SetQuantity sets an existing line's quantity to exactly qty. Setting zero
// removes the line, same as RemoveItem. Fails with LineNotFoundError when no
// line exists for the product, and with ErrInvalidQuantity for negative qty.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty < 0 {
		return errors.Wrapf(ErrInvalidQuantity, "set %d of product %s", qty, productID)
	}
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		if qty == 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		c.lines[i].Quantity = qty
		return nil
	}
	return &LineNotFoundError{ProductID: productID}
}

// RemoveItem removes the product's line if present. Removing an absent line
// is a no-op, not an error: repeated deletes from stale UI state are common
// and harmless.
func (c *Cart) RemoveItem(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear removes all line items. Used after checkout confirmation.
func (c *Cart) Clear() {
	c.lines = nil
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the cart's line items. Mutating the returned slice
// does not affect the cart.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Snapshot returns a point-in-time copy of the cart contents. Checkout holds
// a snapshot so that later cart mutation cannot corrupt an in-flight order.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Lines: c.Lines()}
}

// Snapshot is an immutable copy of cart contents taken at checkout
// initiation.
type Snapshot struct {
	Lines []Line
}

// Empty reports whether the snapshot has no line items.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}
