package sync

import (
	"slices"
	"sync"
	"time"

	"github.com/contenthub/hubsync/internal/artifact"
)

type EventType string

const (
	EventItemSynced     EventType = "itemSynced"
	EventItemConflicted EventType = "itemConflicted"
	EventItemRejected   EventType = "itemRejected"
	EventItemFailed     EventType = "itemFailed"
	EventItemSkipped    EventType = "itemSkipped"
)

// Event is emitted once per item when it reaches a terminal state. Events of a
// batch are emitted in completion order.
type Event struct {
	Type       EventType
	Direction  Direction
	Descriptor artifact.Descriptor
	State      State
	Err        error
	MarkerPath string
	Time       time.Time
}

func newEvent(dir Direction, ir ItemResult, at time.Time) Event {
	ev := Event{
		Direction:  dir,
		Descriptor: ir.Descriptor,
		State:      ir.State,
		Err:        ir.Err,
		MarkerPath: ir.MarkerPath,
		Time:       at,
	}
	switch ir.State {
	case StateSucceeded, StateDeleted:
		ev.Type = EventItemSynced
	case StateConflicted:
		ev.Type = EventItemConflicted
	case StateRejected:
		ev.Type = EventItemRejected
	case StateSkipped:
		ev.Type = EventItemSkipped
	default:
		ev.Type = EventItemFailed
	}
	return ev
}

// Sink receives progress events. Notify is called from a single goroutine per
// batch and should return promptly.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Notify(ev Event) { f(ev) }

// Broadcaster fans events out to channel subscribers. Delivery blocks until
// every subscriber has room, so no event is dropped; a subscriber that stops
// reading must Unsubscribe.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool

	// known is guarded by regMu, never held by Notify, so Unsubscribe can look
	// a channel up while a delivery is blocked
	regMu sync.Mutex
	known map[<-chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{known: make(map[<-chan Event]struct{})}
}

// Subscribe returns a channel that receives every subsequent event. The
// channel is closed by Unsubscribe or Close.
func (b *Broadcaster) Subscribe(buffer int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, max(buffer, 0))
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	b.regMu.Lock()
	if b.known == nil {
		b.known = make(map[<-chan Event]struct{})
	}
	b.known[ch] = struct{}{}
	b.regMu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Events still being delivered to ch are discarded.
// Unknown or already released channels are ignored.
func (b *Broadcaster) Unsubscribe(ch <-chan Event) {
	b.regMu.Lock()
	_, ok := b.known[ch]
	delete(b.known, ch)
	b.regMu.Unlock()
	if !ok {
		return
	}

	// drain so a blocked Notify can release the lock; ends once ch is closed
	go func() {
		for range ch {
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == ch {
			close(sub)
			b.subs = slices.Delete(b.subs, i, i+1)
			return
		}
	}
}

// Notify delivers ev to every subscriber.
func (b *Broadcaster) Notify(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub <- ev
	}
}

// Close closes every subscriber channel. Later events are discarded.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil

	b.regMu.Lock()
	clear(b.known)
	b.regMu.Unlock()
}
