package types

import "errors"

var (
	// ErrInvalidHint is returned when a positional hint exists but does
	// not precede the position the order belongs at.
	ErrInvalidHint = errors.New("hint does not precede the order position")
	// ErrWrongHintType is returned when the hinted neighbour is not of
	// the order kind the operation expects.
	ErrWrongHintType = errors.New("hinted order is of the wrong kind")
	// ErrPreviousOrderNotFound is returned when the supplied predecessor
	// does not immediately precede the target order.
	ErrPreviousOrderNotFound = errors.New("previous order not found")
	// ErrOrderNotFound is returned when an order id is not present in
	// the pair's sequences.
	ErrOrderNotFound = errors.New("order not found")
	// ErrNoExpiredOrderFound is returned by an expiration sweep that
	// removed nothing within its step budget.
	ErrNoExpiredOrderFound = errors.New("no expired order found")

	ErrPairNotFound      = errors.New("pair not registered")
	ErrPairDisabled      = errors.New("pair is disabled")
	ErrPairAlreadyExists = errors.New("pair already registered")

	ErrInvalidPrice          = errors.New("price must be positive")
	ErrInvalidMultiplyFactor = errors.New("multiply factor must be positive")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrAmountTooLow          = errors.New("amount below the minimum order amount")
	ErrLifespanTooHigh       = errors.New("lifespan above the maximum")
	ErrInvalidStepCount      = errors.New("step count must be at least one")
	ErrNotOwner              = errors.New("order does not belong to the caller")
	ErrNoReferencePrice      = errors.New("no reference price available for pair")
)
