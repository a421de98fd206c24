package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/teashop/internal/domain/cart"
)

func TestShouldShow(t *testing.T) {
	assert.False(t, ShouldShow(cart.Snapshot{}), "empty cart must suppress recommendations")

	snap := cart.Snapshot{Lines: []cart.Line{{ProductID: "p1", Quantity: 1}}}
	assert.True(t, ShouldShow(snap), "any line item must enable recommendations")
}
