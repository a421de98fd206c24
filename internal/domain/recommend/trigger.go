// Package recommend computes the gate that tells the external recommender
// whether suggestion content should be rendered at all. No recommendation
// content is computed here.
package recommend

import "github.com/xenking/teashop/internal/domain/cart"

// ShouldShow reports whether recommendations should be rendered for the
// given cart snapshot. The predicate flips to true exactly when the cart
// becomes non-empty and back to false when the last line is removed, whether
// by an explicit delete or by setting its quantity to zero.
func ShouldShow(snap cart.Snapshot) bool {
	return !snap.Empty()
}
