package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/teashop/internal/domain/auth"
	"github.com/xenking/teashop/internal/domain/catalog"
	"github.com/xenking/teashop/internal/domain/checkout"
	"github.com/xenking/teashop/internal/domain/order"
	"github.com/xenking/teashop/internal/domain/pricing"
)

// StartCheckout initiates a checkout over a snapshot of the caller's cart.
// It requires an authenticated identity and a non-empty cart; both are
// precondition failures that leave the cart untouched.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	sess, err := h.checkouts.Start(r.Context(), key, h.identity(r))
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("checkout initiated",
		zap.String("checkout_id", sess.ID),
		zap.String("user_id", sess.UserID),
		zap.Int("lines", len(sess.Snapshot.Lines)),
	)

	writeCheckoutStage(w, http.StatusCreated, sess)
}

// PlaceOrder submits the order form, advancing the checkout to the
// order-placed stage.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	details, err := decodeOrderDetails(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.checkouts.PlaceOrder(key, details)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeCheckoutStage(w, http.StatusOK, sess)
}

// ConfirmCheckout finalizes the checkout: the order is persisted exactly
// once and the live cart is cleared.
func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	o, err := h.checkouts.Confirm(r.Context(), key)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("order confirmed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.Total.String()),
	)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("total")
	e.Float64(o.Total.InexactFloat64())
	e.FieldStart("formattedTotal")
	e.Str(pricing.FormatUSD(o.Total))
	e.FieldStart("message")
	e.Str("Your order is confirmed!")
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

// AbandonCheckout cancels an in-flight checkout. The live cart is left
// exactly as it was before checkout started.
func (h *Handler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r)

	if err := h.checkouts.Abandon(key); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeCheckoutError maps checkout domain errors to API responses.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *checkout.InvalidTransitionError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		writeError(w, http.StatusConflict, "checkout already in progress")
	case errors.Is(err, checkout.ErrIncompleteDetails):
		writeError(w, http.StatusUnprocessableEntity, "order details incomplete")
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, invalid.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		internalError(w, r, err)
	}
}

func writeCheckoutStage(w http.ResponseWriter, status int, sess *checkout.Session) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("checkoutId")
	e.Str(sess.ID)
	e.FieldStart("stage")
	e.Str(sess.Stage().String())
	e.ObjEnd()
	writeJSON(w, status, &e)
}

func decodeOrderDetails(r *http.Request) (order.Details, error) {
	body, err := readBody(r)
	if err != nil {
		return order.Details{}, err
	}

	var d order.Details
	dec := jx.DecodeBytes(body)
	if err := dec.Obj(func(dec *jx.Decoder, key string) error {
		var target *string
		switch key {
		case "recipientName":
			target = &d.RecipientName
		case "addressLine1":
			target = &d.AddressLine1
		case "addressLine2":
			target = &d.AddressLine2
		case "cardType":
			target = &d.CardType
		case "cardNumber":
			target = &d.CardNumber
		case "cardExpiry":
			target = &d.CardExpiry
		default:
			return dec.Skip()
		}
		v, err := dec.Str()
		if err != nil {
			return err
		}
		*target = v
		return nil
	}); err != nil {
		return order.Details{}, err
	}
	return d, nil
}
