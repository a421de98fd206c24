//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

const testSessionToken = "integration-test-token"

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func orderDetails() map[string]any {
	return map[string]any{
		"recipientName": "Jane Doe",
		"addressLine1":  "1 Tea Lane",
		"addressLine2":  "Apt 2",
		"cardType":      "visa",
		"cardNumber":    "4111111111111111",
		"cardExpiry":    "12/2028",
	}
}

func TestStartCheckout_NoAuth(t *testing.T) {
	session := newSessionKey(t)
	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStartCheckout_InvalidToken(t *testing.T) {
	session := newSessionKey(t)
	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, "never-issued-token", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	session := newSessionKey(t)

	resp := doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_FullFlow(t *testing.T) {
	session := newSessionKey(t)

	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()
	resp = addItem(t, session, "tea-assam-gold", 1)
	resp.Body.Close()

	// Initiate.
	resp = doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	started := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()
	if started.Stage != "initiated" {
		t.Errorf("stage: got %q, want initiated", started.Stage)
	}
	if !uuidPattern.MatchString(started.CheckoutID) {
		t.Errorf("checkout ID %q is not a valid UUID", started.CheckoutID)
	}

	// Place the order.
	resp = doRequest(t, http.MethodPost, "/api/checkout/order", session, testSessionToken, orderDetails())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("place order: expected 200, got %d", resp.StatusCode)
	}
	placed := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()
	if placed.Stage != "order_placed" {
		t.Errorf("stage: got %q, want order_placed", placed.Stage)
	}

	// Confirm.
	resp = doRequest(t, http.MethodPost, "/api/checkout/confirm", session, testSessionToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("confirm: expected 201, got %d", resp.StatusCode)
	}
	confirmed := decodeJSON[confirmResponse](t, resp)
	resp.Body.Close()

	if !uuidPattern.MatchString(confirmed.OrderID) {
		t.Errorf("order ID %q is not a valid UUID", confirmed.OrderID)
	}
	if confirmed.FormattedTotal != "$97.69" {
		t.Errorf("formattedTotal: got %q, want $97.69", confirmed.FormattedTotal)
	}
	if confirmed.Message != "Your order is confirmed!" {
		t.Errorf("message: got %q", confirmed.Message)
	}

	// Confirmation must have cleared the cart.
	resp = doRequest(t, http.MethodGet, "/api/cart", session, "", nil)
	defer resp.Body.Close()
	c := decodeJSON[cartResponse](t, resp)
	if !c.Empty {
		t.Error("cart should be empty after confirmation")
	}
}

func TestConfirm_BeforePlacingOrder(t *testing.T) {
	session := newSessionKey(t)
	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout/confirm", session, testSessionToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_IncompleteDetails(t *testing.T) {
	session := newSessionKey(t)
	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	resp.Body.Close()

	d := orderDetails()
	delete(d, "cardNumber")
	resp = doRequest(t, http.MethodPost, "/api/checkout/order", session, testSessionToken, d)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestAbandonCheckout_KeepsCart(t *testing.T) {
	session := newSessionKey(t)
	resp := addItem(t, session, "tea-chamomile", 2)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout/abandon", session, testSessionToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("abandon: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/cart", session, "", nil)
	defer resp.Body.Close()
	c := decodeJSON[cartResponse](t, resp)
	if c.Empty {
		t.Error("abandon must leave the cart unchanged")
	}
	if c.FormattedTotal != "$19.90" {
		t.Errorf("formattedTotal: got %q, want $19.90", c.FormattedTotal)
	}
}

func TestStartCheckout_SecondWhileInFlight(t *testing.T) {
	session := newSessionKey(t)
	resp := addItem(t, session, "tea-earl-grey", 1)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/checkout", session, testSessionToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
