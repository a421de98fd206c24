// Package handler exposes the cart and checkout domain over a JSON HTTP API.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/teashop/internal/domain/auth"
	"github.com/xenking/teashop/internal/domain/cart"
	"github.com/xenking/teashop/internal/domain/catalog"
	"github.com/xenking/teashop/internal/domain/checkout"
)

// cartSessionHeader carries the opaque key that scopes a cart to one
// browser session. The server mints one on first touch and echoes it back.
const cartSessionHeader = "X-Cart-Session"

// maxBodySize caps request bodies; cart and checkout payloads are tiny.
const maxBodySize = 64 << 10

// Handler serves the cart and checkout API.
type Handler struct {
	carts     *cart.Store
	products  catalog.Repository
	checkouts *checkout.Service
	verifier  *auth.Verifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Store,
	products catalog.Repository,
	checkouts *checkout.Service,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		carts:     carts,
		products:  products,
		checkouts: checkouts,
		verifier:  verifier,
	}
}

// Routes registers all API endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.SetQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.RemoveItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/checkout", h.StartCheckout)
	mux.HandleFunc("POST /api/checkout/order", h.PlaceOrder)
	mux.HandleFunc("POST /api/checkout/confirm", h.ConfirmCheckout)
	mux.HandleFunc("POST /api/checkout/abandon", h.AbandonCheckout)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{productID}", h.GetProduct)
}

// cartKey returns the session key scoping the caller's cart, minting a new
// one when the request carries none. The key is always echoed on the
// response so clients can persist it.
func (h *Handler) cartKey(w http.ResponseWriter, r *http.Request) string {
	key := r.Header.Get(cartSessionHeader)
	if key == "" || len(key) > 128 {
		key = uuid.New().String()
	}
	w.Header().Set(cartSessionHeader, key)
	return key
}

// readBody reads and size-limits the request body.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

// writeJSON writes an encoded JSON payload with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the API error envelope {code, message}.
func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// internalError logs err and responds with an opaque 500.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
