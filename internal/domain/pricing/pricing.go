// Package pricing derives monetary amounts from cart contents and catalog
// prices. It holds no state of its own: every summary is a fresh computation
// over the lines it is handed, so a summary can never diverge from the cart.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/teashop/internal/domain/cart"
	"github.com/xenking/teashop/internal/domain/catalog"
)

// currencyScale is the number of decimal places for all monetary amounts.
const currencyScale = 2

// LineAmount is the priced form of a single cart line.
type LineAmount struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

// Summary is the priced form of a whole cart. An empty cart yields
// Empty == true, which callers must render as a distinct state rather than
// a zero total.
type Summary struct {
	Lines []LineAmount
	Total decimal.Decimal
	Empty bool
}

// Summarize prices every line of the snapshot against the catalog. Each line
// subtotal is unit price times quantity rounded half-up to the currency
// scale; the total is the sum of line subtotals, rounded once more. A catalog
// miss is fatal to the whole computation: a line that cannot be priced must
// never silently default to zero.
func Summarize(ctx context.Context, snap cart.Snapshot, repo catalog.Repository) (Summary, error) {
	if snap.Empty() {
		return Summary{Total: decimal.Zero.Round(currencyScale), Empty: true}, nil
	}

	ids := make([]string, len(snap.Lines))
	for i, l := range snap.Lines {
		ids[i] = l.ProductID
	}

	fetched, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return Summary{}, errors.Wrap(err, "get products")
	}
	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]LineAmount, len(snap.Lines))
	total := decimal.Zero
	for i, l := range snap.Lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return Summary{}, errors.Wrapf(catalog.ErrNotFound, "price line for product %s", l.ProductID)
		}

		subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(currencyScale)
		lines[i] = LineAmount{
			ProductID: l.ProductID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			Subtotal:  subtotal,
		}
		total = total.Add(subtotal)
	}

	return Summary{
		Lines: lines,
		Total: total.Round(currencyScale),
	}, nil
}

// FormatUSD renders a monetary amount with a dollar prefix and exactly two
// decimal places, e.g. "$151.64". This format is an observable contract
// toward presentation collaborators.
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(currencyScale)
}
