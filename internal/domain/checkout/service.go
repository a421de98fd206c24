package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/teashop/internal/domain/auth"
	"github.com/xenking/teashop/internal/domain/cart"
	"github.com/xenking/teashop/internal/domain/catalog"
	"github.com/xenking/teashop/internal/domain/order"
	"github.com/xenking/teashop/internal/domain/pricing"
)

// Sentinel errors for checkout preconditions.
var (
	// ErrEmptyCart rejects checkout initiation over a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrIncompleteDetails rejects an order submission with missing form
	// fields; the checkout stays in the initiated stage.
	ErrIncompleteDetails = errors.New("order details incomplete")
	// ErrCheckoutInFlight rejects starting a second checkout while one is
	// still in a non-terminal stage.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

// Service drives checkouts for all live sessions. It consumes an
// authenticated identity and a non-empty cart, and produces a confirmed
// order or nothing.
type Service struct {
	carts    *cart.Store
	products catalog.Repository
	orders   order.Repository
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a checkout Service over the given cart store, catalog,
// and order persistence.
func NewService(carts *cart.Store, products catalog.Repository, orders order.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start initiates a checkout for the session. It fails with
// auth.ErrUnauthenticated when no identity is attached and with ErrEmptyCart
// when the cart has no lines; both are precondition failures and leave the
// cart untouched. A snapshot of the cart is taken at this point.
func (s *Service) Start(ctx context.Context, sessionKey string, ident *auth.Identity) (*Session, error) {
	if ident == nil {
		return nil, auth.ErrUnauthenticated
	}

	var snap cart.Snapshot
	if err := s.carts.WithCart(sessionKey, func(c *cart.Cart) error {
		snap = c.Snapshot()
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "snapshot cart")
	}
	if snap.Empty() {
		return nil, ErrEmptyCart
	}

	sess := &Session{
		ID:       uuid.New().String(),
		UserID:   ident.UserID,
		Snapshot: snap,
	}
	sess.stage.Store(int32(StageInitiated))

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.sessions[sessionKey]; ok && !prev.Stage().Terminal() {
		return nil, ErrCheckoutInFlight
	}
	s.sessions[sessionKey] = sess
	return sess, nil
}

// PlaceOrder submits the order form for the session's checkout, advancing it
// from Initiated to OrderPlaced. Incomplete details are rejected without a
// stage change.
func (s *Service) PlaceOrder(sessionKey string, details order.Details) (*Session, error) {
	sess, ok := s.lookup(sessionKey)
	if !ok {
		return nil, &InvalidTransitionError{From: StageNotEligible, To: StageOrderPlaced}
	}
	if !details.Complete() {
		return nil, ErrIncompleteDetails
	}
	if err := sess.advance(StageInitiated, StageOrderPlaced); err != nil {
		return nil, err
	}
	sess.setDetails(details)
	return sess, nil
}

// Confirm finalizes the checkout. Only this transition clears the live cart
// and emits an order, and it emits exactly one. The snapshot is priced
// against current catalog prices at confirmation time. If persisting the
// order fails the stage is rolled back to OrderPlaced so the confirmation
// can be retried; on success the checkout session is destroyed.
func (s *Service) Confirm(ctx context.Context, sessionKey string) (*order.Order, error) {
	sess, ok := s.lookup(sessionKey)
	if !ok {
		return nil, &InvalidTransitionError{From: StageNotEligible, To: StageConfirmed}
	}
	if err := sess.advance(StageOrderPlaced, StageConfirmed); err != nil {
		return nil, err
	}

	o, err := s.buildOrder(ctx, sess)
	if err == nil {
		err = errors.Wrap(s.orders.Create(ctx, o), "create order")
	}
	if err != nil {
		sess.stage.Store(int32(StageOrderPlaced))
		return nil, err
	}

	if err := s.carts.WithCart(sessionKey, func(c *cart.Cart) error {
		c.Clear()
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	s.destroy(sessionKey, sess)
	return o, nil
}

// Abandon cancels the checkout from any non-terminal in-flight stage and
// destroys the checkout session. The live cart is left exactly as it was
// before checkout started.
func (s *Service) Abandon(sessionKey string) error {
	sess, ok := s.lookup(sessionKey)
	if !ok {
		return &InvalidTransitionError{From: StageNotEligible, To: StageAbandoned}
	}
	for {
		st := sess.Stage()
		if st != StageInitiated && st != StageOrderPlaced {
			return &InvalidTransitionError{From: st, To: StageAbandoned}
		}
		if sess.stage.CompareAndSwap(int32(st), int32(StageAbandoned)) {
			s.destroy(sessionKey, sess)
			return nil
		}
	}
}

// Current returns the session's in-flight checkout, if any.
func (s *Service) Current(sessionKey string) (*Session, bool) {
	return s.lookup(sessionKey)
}

func (s *Service) lookup(sessionKey string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey]
	return sess, ok
}

// destroy removes the session's map entry once it has reached a terminal
// stage. The identity check guards against deleting a newer checkout that
// replaced sess between the stage transition and this call.
func (s *Service) destroy(sessionKey string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionKey] == sess {
		delete(s.sessions, sessionKey)
	}
}

func (s *Service) buildOrder(ctx context.Context, sess *Session) (*order.Order, error) {
	summary, err := pricing.Summarize(ctx, sess.Snapshot, s.products)
	if err != nil {
		return nil, errors.Wrap(err, "price order")
	}

	items := make([]order.Item, len(summary.Lines))
	for i, l := range summary.Lines {
		items[i] = order.Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	return &order.Order{
		ID:        uuid.New().String(),
		UserID:    sess.UserID,
		Items:     items,
		Total:     summary.Total,
		Details:   sess.getDetails(),
		CreatedAt: s.now(),
	}, nil
}
