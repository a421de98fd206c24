package checkout

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xenking/teashop/internal/domain/cart"
	"github.com/xenking/teashop/internal/domain/order"
)

// Stage is a checkout state. Transitions are strictly sequential:
// NotEligible -> Initiated -> OrderPlaced -> Confirmed, with Abandoned
// reachable from either non-terminal in-flight stage. Confirmed and
// Abandoned are terminal.
type Stage int32

const (
	// StageNotEligible is the default stage: no checkout exists for the
	// session, because it is unauthenticated or its cart is empty.
	StageNotEligible Stage = iota
	// StageInitiated means a cart snapshot has been taken for an
	// authenticated session.
	StageInitiated
	// StageOrderPlaced means order details were accepted.
	StageOrderPlaced
	// StageConfirmed is terminal: the order is emitted and the live cart
	// cleared.
	StageConfirmed
	// StageAbandoned is terminal: the live cart is left unchanged.
	StageAbandoned
)

// String returns the stage name for logging.
func (s Stage) String() string {
	switch s {
	case StageNotEligible:
		return "not_eligible"
	case StageInitiated:
		return "initiated"
	case StageOrderPlaced:
		return "order_placed"
	case StageConfirmed:
		return "confirmed"
	case StageAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("stage(%d)", int32(s))
	}
}

// Terminal reports whether the stage has no outgoing transitions.
func (s Stage) Terminal() bool {
	return s == StageConfirmed || s == StageAbandoned
}

// InvalidTransitionError indicates an out-of-order stage change. The
// attempted transition is refused rather than silently succeeding.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid checkout transition %s -> %s", e.From, e.To)
}

// Session is one in-flight checkout. It owns a point-in-time copy of the
// cart taken at initiation, so later cart mutation cannot corrupt the order.
//
// The stage is advanced by compare-and-set only: a cancel and a confirm
// racing from two tabs resolve to exactly one terminal state.
type Session struct {
	ID       string
	UserID   string
	Snapshot cart.Snapshot

	stage atomic.Int32

	mu      sync.Mutex
	details order.Details
}

// Stage returns the session's current stage.
func (s *Session) Stage() Stage {
	return Stage(s.stage.Load())
}

// advance atomically moves the session from exactly `from` to `to`.
func (s *Session) advance(from, to Stage) error {
	if s.stage.CompareAndSwap(int32(from), int32(to)) {
		return nil
	}
	return &InvalidTransitionError{From: s.Stage(), To: to}
}

// setDetails stores the order form data. Only the winner of the
// Initiated -> OrderPlaced transition calls this.
func (s *Session) setDetails(d order.Details) {
	s.mu.Lock()
	s.details = d
	s.mu.Unlock()
}

func (s *Session) getDetails() order.Details {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}
