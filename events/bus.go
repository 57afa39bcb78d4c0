package events

import (
	"context"
)

// Type discriminates event payloads on the bus.
type Type int

const (
	// All event type -> used by subscribers to receive every event, has
	// no corresponding payload.
	All Type = iota
	OrderInsertedEvent
	OrderQueuedEvent
	OrderCancelledEvent
	OrderExpiredEvent
	BuyerMatchEvent
	SellerMatchEvent
	TickEndedEvent
	PairEnabledEvent
	PairDisabledEvent
)

var eventStrings = map[Type]string{
	All:                 "ALL",
	OrderInsertedEvent:  "OrderInserted",
	OrderQueuedEvent:    "OrderQueued",
	OrderCancelledEvent: "OrderCancelled",
	OrderExpiredEvent:   "OrderExpired",
	BuyerMatchEvent:     "BuyerMatch",
	SellerMatchEvent:    "SellerMatch",
	TickEndedEvent:      "TickEnded",
	PairEnabledEvent:    "PairEnabled",
	PairDisabledEvent:   "PairDisabled",
}

// String get string representation of event type.
func (t Type) String() string {
	s, ok := eventStrings[t]
	if !ok {
		return "UNKNOWN EVENT"
	}
	return s
}

// Event is the common denominator all bus events share.
type Event interface {
	Type() Type
	Context() context.Context
	TraceID() string
}

type traceIDKey struct{}

// WithTraceID attaches a trace id to the context for correlation of the
// events emitted by one call.
func WithTraceID(ctx context.Context, tID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, tID)
}

// Base common denominator all event-bus events share.
type Base struct {
	ctx     context.Context
	traceID string
	et      Type
}

// A base event holds no data, so the constructor will not be called directly.
func newBase(ctx context.Context, t Type) *Base {
	tID, _ := ctx.Value(traceIDKey{}).(string)
	return &Base{
		ctx:     ctx,
		traceID: tID,
		et:      t,
	}
}

// TraceID returns the trace id the event was emitted under.
func (b Base) TraceID() string {
	return b.traceID
}

// Context returns the event context.
func (b Base) Context() context.Context {
	return b.ctx
}

// Type returns the event type.
func (b Base) Type() Type {
	return b.et
}
