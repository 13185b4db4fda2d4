package eventbus

import (
	"github.com/google/uuid"
)

// Subscription is a scoped handle to a live subscription. Callers must
// call Unsubscribe when done (connection close, handler teardown); the
// Bus does not garbage-collect abandoned subscriptions on its own.
type Subscription struct {
	id       string
	reviewID string
	events   chan Event
	bus      *Bus
}

// Events returns the channel new events for this subscription's review
// arrive on. It is closed when Unsubscribe is called.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe releases the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s)
}

// Bus is a single-goroutine, per-review publish/subscribe hub. Modeled
// on this codebase's notification-hub idiom (see DESIGN.md): one
// goroutine owns all subscriber state and processes requests serially
// off a channel, so no mutex guards the hot path. Handler delivery is
// non-blocking — a slow or stuck subscriber cannot stall publication to
// the others.
type Bus struct {
	requests chan any
	stop     chan struct{}
}

type subscribeReq struct {
	reviewID string
	resp     chan *Subscription
}

type unsubscribeReq struct {
	sub *Subscription
}

type publishReq struct {
	reviewID string
	event    Event
}

// eventBufferSize bounds how many undelivered events a single slow
// subscriber can accumulate before further publishes to it are dropped.
const eventBufferSize = 32

// NewBus starts a new Bus and its processing goroutine.
func NewBus() *Bus {
	b := &Bus{
		requests: make(chan any, 256),
		stop:     make(chan struct{}),
	}
	go b.run()
	return b
}

// Close stops the Bus's processing goroutine. Existing subscriptions'
// channels are left open but will never receive further events.
func (b *Bus) Close() {
	close(b.stop)
}

// Subscribe registers a new subscriber for reviewID and returns a scoped
// handle. The subscription observes every event published for that
// review from this point forward.
func (b *Bus) Subscribe(reviewID string) *Subscription {
	resp := make(chan *Subscription, 1)
	b.requests <- subscribeReq{reviewID: reviewID, resp: resp}
	return <-resp
}

// Publish dispatches event to every current subscriber of reviewID.
// Ordering within a single review is preserved because the Bus's
// goroutine processes requests strictly in the order they were sent;
// across reviews there is no ordering guarantee, per spec §4.3.
func (b *Bus) Publish(reviewID string, event Event) {
	b.requests <- publishReq{reviewID: reviewID, event: event}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.requests <- unsubscribeReq{sub: sub}
}

func (b *Bus) run() {
	subs := make(map[string]map[*Subscription]struct{})

	for {
		select {
		case <-b.stop:
			return

		case req := <-b.requests:
			switch r := req.(type) {
			case subscribeReq:
				sub := &Subscription{
					id:       uuid.NewString(),
					reviewID: r.reviewID,
					events:   make(chan Event, eventBufferSize),
					bus:      b,
				}
				if subs[r.reviewID] == nil {
					subs[r.reviewID] = make(map[*Subscription]struct{})
				}
				subs[r.reviewID][sub] = struct{}{}
				r.resp <- sub

			case unsubscribeReq:
				if set, ok := subs[r.sub.reviewID]; ok {
					if _, present := set[r.sub]; present {
						delete(set, r.sub)
						close(r.sub.events)
						if len(set) == 0 {
							delete(subs, r.sub.reviewID)
						}
					}
				}

			case publishReq:
				for sub := range subs[r.reviewID] {
					select {
					case sub.events <- r.event:
					default:
						// Slow subscriber; drop rather
						// than block the Bus. A stuck
						// consumer only hurts itself.
					}
				}
			}
		}
	}
}
