package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/teashop/internal/domain/cart"
	"github.com/xenking/teashop/internal/domain/catalog"
	"github.com/xenking/teashop/internal/domain/pricing"
	"github.com/xenking/teashop/internal/domain/recommend"
)

// emptyCartMessage is the distinct empty-cart rendering: an empty cart is
// its own state, not a zero total.
const emptyCartMessage = "Your cart is empty."

// GetCart renders the current cart with freshly computed pricing and the
// recommendation gate.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	var snap cart.Snapshot
	_ = h.carts.WithCart(key, func(c *cart.Cart) error {
		snap = c.Snapshot()
		return nil
	})

	h.writeCartView(w, r, snap)
}

// AddItem adds a product to the cart, incrementing the existing line when
// one exists. The product must exist in the catalog.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	req, err := decodeAddItem(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	if _, err := h.products.GetByID(r.Context(), req.ProductID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "product "+req.ProductID+" not found")
			return
		}
		internalError(w, r, errors.Wrapf(err, "get product %s", req.ProductID))
		return
	}

	var snap cart.Snapshot
	err = h.carts.WithCart(key, func(c *cart.Cart) error {
		if err := c.AddItem(req.ProductID, req.Quantity); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}

	h.writeCartView(w, r, snap)
}

// SetQuantity sets an existing line's quantity. Quantity zero removes the
// line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)
	productID := r.PathValue("productID")

	qty, err := decodeQuantity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var snap cart.Snapshot
	err = h.carts.WithCart(key, func(c *cart.Cart) error {
		if err := c.SetQuantity(productID, qty); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}

	h.writeCartView(w, r, snap)
}

// RemoveItem removes a line from the cart. Removal is idempotent: deleting
// an absent line succeeds with no state change.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)
	productID := r.PathValue("productID")

	_ = h.carts.WithCart(key, func(c *cart.Cart) error {
		c.RemoveItem(productID)
		return nil
	})

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart removes all lines from the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	_ = h.carts.WithCart(key, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})

	w.WriteHeader(http.StatusNoContent)
}

// writeCartError maps cart mutation errors to API responses.
func (h *Handler) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	var lnf *cart.LineNotFoundError
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusUnprocessableEntity, "quantity must be a positive integer")
	case errors.As(err, &lnf):
		writeError(w, http.StatusNotFound, lnf.Error())
	default:
		internalError(w, r, err)
	}
}

// writeCartView prices the snapshot and renders the cart response.
func (h *Handler) writeCartView(w http.ResponseWriter, r *http.Request, snap cart.Snapshot) {
	summary, err := pricing.Summarize(r.Context(), snap, h.products)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		internalError(w, r, errors.Wrap(err, "price cart"))
		return
	}

	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("empty")
	e.Bool(summary.Empty)
	if summary.Empty {
		e.FieldStart("message")
		e.Str(emptyCartMessage)
	}

	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range summary.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("unitPrice")
		e.Float64(l.UnitPrice.InexactFloat64())
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("subtotal")
		e.Float64(l.Subtotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("total")
	e.Float64(summary.Total.InexactFloat64())
	e.FieldStart("formattedTotal")
	e.Str(pricing.FormatUSD(summary.Total))

	e.FieldStart("showRecommendations")
	e.Bool(recommend.ShouldShow(snap))

	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

type addItemRequest struct {
	ProductID string
	Quantity  int
}

func decodeAddItem(r *http.Request) (addItemRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return addItemRequest{}, err
	}

	req := addItemRequest{Quantity: 1}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
			return err
		case "quantity":
			req.Quantity, err = d.Int()
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return addItemRequest{}, err
	}
	return req, nil
}

func decodeQuantity(r *http.Request) (int, error) {
	body, err := readBody(r)
	if err != nil {
		return 0, err
	}

	qty := 0
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "quantity" {
			qty, err = d.Int()
			return err
		}
		return d.Skip()
	}); err != nil {
		return 0, err
	}
	return qty, nil
}
