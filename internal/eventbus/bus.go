// Package eventbus is the publish-subscribe channel between the Runner and
// UI-facing subscribers. Progress events may be coalesced or dropped under
// backpressure; stderr lines are best-effort; completion events are always
// delivered, since a UI that misses a completion would show a job stuck in
// "running" forever.
package eventbus

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// coalesceInterval is the minimum spacing between delivered progress
// events per subscriber. The exact value is an implementation choice (no
// wire contract depends on it); 200ms keeps a progress bar visually smooth
// without saturating a slow UI thread.
const coalesceInterval = 200 * time.Millisecond

// queueDepth bounds the per-subscriber progress/stderr backlog. Once full,
// further events of those two topics are dropped rather than blocking the
// publisher (the Runner's reader goroutine).
const queueDepth = 256

// Handler receives bus events. It must not block for long: a slow handler
// only delays its own subscription's delivery goroutine, but a handler
// that never returns will starve that subscription entirely.
type Handler func(Event)

// Unsubscribe detaches a subscription. Idempotent.
type Unsubscribe func()

type subscription struct {
	topic   Topic
	handler Handler
	ch      chan Event
	limiter *rate.Limiter
	done    chan struct{}
	closeOnce sync.Once
}

// Bus is a process-wide, thread-safe publish-subscribe dispatcher.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]*subscription
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]*subscription)}
}

// Subscribe registers handler for topic. Each subscription gets its own
// delivery goroutine and bounded queue, so a slow subscriber cannot stall
// another. The returned Unsubscribe must be called on teardown.
func (b *Bus) Subscribe(topic Topic, handler Handler) Unsubscribe {
	sub := &subscription{
		topic:   topic,
		handler: handler,
		ch:      make(chan Event, queueDepth),
		limiter: rate.NewLimiter(rate.Every(coalesceInterval), 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	go sub.run()

	return func() { b.unsubscribe(sub) }
}

func (s *subscription) run() {
	for {
		select {
		case ev := <-s.ch:
			s.handler(ev)
		case <-s.done:
			return
		}
	}
}

func (b *Bus) unsubscribe(target *subscription) {
	target.closeOnce.Do(func() { close(target.done) })

	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[target.topic]
	for i, s := range subs {
		if s == target {
			b.subs[target.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Publish dispatches ev to every subscriber of ev.Topic. Progress events
// are coalesced per-subscriber and dropped if the queue is full or the
// coalescing window hasn't elapsed; completion events are delivered
// reliably via a blocking send on a dedicated goroutine so Publish itself
// never blocks the Runner.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[ev.Topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		switch ev.Topic {
		case TopicCompletion:
			go deliverBlocking(s, ev)
		case TopicProgress:
			if !s.limiter.Allow() {
				continue
			}
			trySend(s, ev)
		default:
			trySend(s, ev)
		}
	}
}

func trySend(s *subscription, ev Event) {
	select {
	case s.ch <- ev:
	case <-s.done:
	default:
		// queue full: drop (progress/stderr are not guaranteed delivery)
	}
}

func deliverBlocking(s *subscription, ev Event) {
	select {
	case s.ch <- ev:
	case <-s.done:
	}
}
