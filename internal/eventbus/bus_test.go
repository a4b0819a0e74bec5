package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mxcore/internal/job"
)

func TestPublishDelivers(t *testing.T) {
	bus := New()
	got := make(chan Event, 1)
	unsub := bus.Subscribe(TopicStderr, func(ev Event) { got <- ev })
	defer unsub()

	bus.Publish(Event{Topic: TopicStderr, JobID: "j1", Line: "hello"})

	select {
	case ev := <-got:
		assert.Equal(t, job.ID("j1"), ev.JobID)
		assert.Equal(t, "hello", ev.Line)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := New()
	var progressSeen atomic.Int32
	unsub := bus.Subscribe(TopicProgress, func(Event) { progressSeen.Add(1) })
	defer unsub()

	bus.Publish(Event{Topic: TopicStderr, JobID: "j1", Line: "noise"})
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, progressSeen.Load())
}

// TestCompletionSurvivesSaturatedSubscriber: a subscriber too slow to
// drain progress events must still receive every completion event.
func TestCompletionSurvivesSaturatedSubscriber(t *testing.T) {
	bus := New()

	block := make(chan struct{})
	var completions atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(TopicCompletion, func(Event) {
		completions.Add(1)
		wg.Done()
	})
	defer unsub()

	slowUnsub := bus.Subscribe(TopicProgress, func(Event) { <-block })
	defer slowUnsub()

	// Saturate the progress subscriber far past its queue depth.
	for i := 0; i < queueDepth*4; i++ {
		bus.Publish(Event{Topic: TopicProgress, JobID: "j1"})
	}

	bus.Publish(Event{Topic: TopicCompletion, JobID: "j1", Completion: Completion{Success: true}})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion event lost under backpressure")
	}
	assert.Equal(t, int32(1), completions.Load())
	close(block)
}

// TestProgressCoalesced verifies the 200ms per-subscriber rate limit: a
// burst of progress events collapses to roughly one delivery.
func TestProgressCoalesced(t *testing.T) {
	bus := New()
	var delivered atomic.Int32
	unsub := bus.Subscribe(TopicProgress, func(Event) { delivered.Add(1) })
	defer unsub()

	for i := 0; i < 100; i++ {
		bus.Publish(Event{Topic: TopicProgress, JobID: "j1"})
	}
	time.Sleep(100 * time.Millisecond)

	n := delivered.Load()
	require.GreaterOrEqual(t, n, int32(1), "first event of a burst is delivered")
	assert.Less(t, n, int32(5), "burst must be coalesced, got %d", n)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	var count atomic.Int32
	unsub := bus.Subscribe(TopicStderr, func(Event) { count.Add(1) })

	bus.Publish(Event{Topic: TopicStderr, JobID: "j1"})
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), count.Load())

	unsub()
	bus.Publish(Event{Topic: TopicStderr, JobID: "j1"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())

	// Idempotent.
	unsub()
}

func TestMultipleSubscribersEachReceiveCompletion(t *testing.T) {
	bus := New()
	var a, b atomic.Int32
	u1 := bus.Subscribe(TopicCompletion, func(Event) { a.Add(1) })
	u2 := bus.Subscribe(TopicCompletion, func(Event) { b.Add(1) })
	defer u1()
	defer u2()

	bus.Publish(Event{Topic: TopicCompletion, JobID: "j1"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a.Load() == 1 && b.Load() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected both subscribers to see the completion, got a=%d b=%d", a.Load(), b.Load())
}
