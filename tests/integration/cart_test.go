//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// newSessionKey mints a unique cart session key per test so carts do not
// bleed between tests sharing one running server.
func newSessionKey(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("it-%s-%d", t.Name(), time.Now().UnixNano())
}

func addItem(t *testing.T, session, productID string, qty int) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPost, "/api/cart/items", session, "", map[string]any{
		"productId": productID,
		"quantity":  qty,
	})
}

func TestGetCart_Empty(t *testing.T) {
	session := newSessionKey(t)

	resp := doRequest(t, http.MethodGet, "/api/cart", session, "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if !c.Empty {
		t.Error("expected empty cart")
	}
	if c.Message != "Your cart is empty." {
		t.Errorf("message: got %q", c.Message)
	}
	if c.ShowRecommendations {
		t.Error("empty cart must not show recommendations")
	}
}

func TestGetCart_MintsSessionKey(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/cart", "", "", nil)
	defer resp.Body.Close()

	if resp.Header.Get("X-Cart-Session") == "" {
		t.Error("X-Cart-Session header not minted")
	}
}

func TestAddItem_PricesCart(t *testing.T) {
	session := newSessionKey(t)

	resp := addItem(t, session, "tea-assam-gold", 2)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if c.FormattedTotal != "$151.64" {
		t.Errorf("formattedTotal: got %q, want $151.64", c.FormattedTotal)
	}
	if !c.ShowRecommendations {
		t.Error("non-empty cart must show recommendations")
	}
	if len(c.Lines) != 1 || c.Lines[0].Quantity != 2 {
		t.Errorf("lines: got %+v", c.Lines)
	}
}

func TestAddItem_UnknownProduct(t *testing.T) {
	session := newSessionKey(t)

	resp := addItem(t, session, "no-such-product", 1)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestSetQuantity_AndRemove(t *testing.T) {
	session := newSessionKey(t)

	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPut, "/api/cart/items/tea-earl-grey", session, "", map[string]any{"quantity": 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set quantity: expected 200, got %d", resp.StatusCode)
	}
	c := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if c.FormattedTotal != "$65.61" {
		t.Errorf("formattedTotal: got %q, want $65.61", c.FormattedTotal)
	}

	resp = doRequest(t, http.MethodDelete, "/api/cart/items/tea-earl-grey", session, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/cart", session, "", nil)
	defer resp.Body.Close()
	c = decodeJSON[cartResponse](t, resp)
	if !c.Empty {
		t.Error("cart should be empty after removal")
	}
}

func TestCartsAreScopedPerSession(t *testing.T) {
	sessionA := newSessionKey(t) + "-a"
	sessionB := newSessionKey(t) + "-b"

	resp := addItem(t, sessionA, "tea-sencha", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, "/api/cart", sessionB, "", nil)
	defer resp.Body.Close()
	c := decodeJSON[cartResponse](t, resp)
	if !c.Empty {
		t.Error("session B must not see session A's cart")
	}
}
