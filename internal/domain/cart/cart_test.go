package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItem_NewLine(t *testing.T) {
	c := New()

	require.NoError(t, c.AddItem("p1", 2))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 2}}, c.Lines())
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	c := New()

	require.NoError(t, c.AddItem("p1", 2))
	require.NoError(t, c.AddItem("p1", 3))

	require.Equal(t, 1, c.Len(), "same product must not create a second line")
	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 5}}, c.Lines())
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	c := New()

	assert.ErrorIs(t, c.AddItem("p1", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem("p1", -3), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty(), "failed add must not mutate the cart")
}

func TestSetQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))

	require.NoError(t, c.SetQuantity("p1", 7))
	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 7}}, c.Lines())
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))
	require.NoError(t, c.AddItem("p2", 1))

	require.NoError(t, c.SetQuantity("p1", 0))

	assert.Equal(t, []Line{{ProductID: "p2", Quantity: 1}}, c.Lines())
}

func TestSetQuantity_Negative(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))

	err := c.SetQuantity("p1", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 2}}, c.Lines())
}

func TestSetQuantity_LineNotFound(t *testing.T) {
	c := New()

	err := c.SetQuantity("ghost", 3)

	var lnf *LineNotFoundError
	require.ErrorAs(t, err, &lnf)
	assert.Equal(t, "ghost", lnf.ProductID)
}

func TestRemoveItem(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))
	require.NoError(t, c.AddItem("p2", 1))

	c.RemoveItem("p1")
	assert.Equal(t, []Line{{ProductID: "p2", Quantity: 1}}, c.Lines())

	// Removing an absent line is a no-op.
	c.RemoveItem("p1")
	c.RemoveItem("never-added")
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))

	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.Lines())
}

func TestLines_ReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))

	lines := c.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 2}}, c.Lines())
}

func TestSnapshot_ImmuneToLaterMutation(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem("p1", 2))

	snap := c.Snapshot()
	require.NoError(t, c.AddItem("p1", 5))
	c.RemoveItem("p1")

	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 2}}, snap.Lines)
	assert.False(t, snap.Empty())
}

func TestSnapshot_Empty(t *testing.T) {
	assert.True(t, New().Snapshot().Empty())
}
