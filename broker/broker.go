package broker

import (
	"sync"

	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/logging"
)

// Subscriber receives the events it registered for. Push is called
// synchronously from the emitting call, in emission order.
type Subscriber interface {
	Push(evts ...events.Event)
	// Types returns the event types the subscriber wants, nil or a
	// slice containing events.All meaning everything.
	Types() []events.Type
}

// Broker is the in process event bus. Delivery is synchronous: the
// engine is serialized call-at-a-time, so events of one call are pushed
// before the next call starts, in the order they were emitted.
type Broker struct {
	log *logging.Logger

	mu     sync.Mutex
	subs   map[int]Subscriber
	nextID int
}

func New(log *logging.Logger, cfg Config) *Broker {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Broker{
		log:  log,
		subs: map[int]Subscriber{},
	}
}

// Subscribe registers a subscriber, returning the key to unsubscribe with.
func (b *Broker) Subscribe(s Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[b.nextID] = s
	return b.nextID
}

// Unsubscribe removes a subscriber by key. Unknown keys are ignored.
func (b *Broker) Unsubscribe(k int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, k)
}

// Send delivers a single event to every interested subscriber.
func (b *Broker) Send(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.log.GetLevel() == logging.DebugLevel {
		b.log.Debug("sending event",
			logging.String("type", e.Type().String()),
			logging.String("trace-id", e.TraceID()),
		)
	}
	for _, s := range b.subs {
		if wants(s, e.Type()) {
			s.Push(e)
		}
	}
}

// SendBatch delivers a batch of events in order.
func (b *Broker) SendBatch(evts []events.Event) {
	for _, e := range evts {
		b.Send(e)
	}
}

func wants(s Subscriber, t events.Type) bool {
	tt := s.Types()
	if len(tt) == 0 {
		return true
	}
	for _, st := range tt {
		if st == events.All || st == t {
			return true
		}
	}
	return false
}

type fnSubscriber struct {
	types []events.Type
	fn    func(events.Event)
}

func (f fnSubscriber) Push(evts ...events.Event) {
	for _, e := range evts {
		f.fn(e)
	}
}

func (f fnSubscriber) Types() []events.Type { return f.types }

// SubscribeFn registers a plain function as a subscriber for the given
// types, all events when none are given.
func (b *Broker) SubscribeFn(fn func(events.Event), types ...events.Type) int {
	return b.Subscribe(fnSubscriber{types: types, fn: fn})
}
