package events

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planet-dev/planet/internal/session"
)

type okRemote struct{}

func (okRemote) Ingest(ctx context.Context, name string, content io.Reader) error { return nil }

func (okRemote) Answer(ctx context.Context, filename, question string) (string, error) {
	return "42", nil
}

func collect(t *testing.T, ch <-chan session.Event, n int) []session.Event {
	t.Helper()
	var got []session.Event
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed after %d events", len(got))
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}
	return got
}

func TestBusDeliversControllerEvents(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	c := session.NewController(session.NewState(nil), okRemote{}, session.WithNotifier(bus))
	_, err = c.UploadDocument(ctx, &session.Document{Name: "demo.pdf", Content: strings.NewReader("x")})
	require.NoError(t, err)

	// started, status(in_flight), binding, status(idle), upload_settled
	got := collect(t, ch, 5)

	kinds := map[session.EventKind]int{}
	for i, ev := range got {
		assert.Equal(t, c.Snapshot().ID, ev.SessionID)
		assert.Equal(t, uint64(i+1), ev.Seq)
		kinds[ev.Kind]++
	}
	assert.Equal(t, session.EventSessionStarted, got[0].Kind)
	assert.Equal(t, session.EventUploadSettled, got[4].Kind)
	assert.Equal(t, 1, kinds[session.EventSessionStarted])
	assert.Equal(t, 1, kinds[session.EventBindingChanged])
	assert.Equal(t, 2, kinds[session.EventStatusChanged])
	assert.Equal(t, 1, kinds[session.EventUploadSettled])
}

func TestBusFanOut(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(session.Event{Seq: 1, Kind: session.EventSessionStarted}))

	assert.Equal(t, uint64(1), collect(t, a, 1)[0].Seq)
	assert.Equal(t, uint64(1), collect(t, b, 1)[0].Seq)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestDrainWaitsForSubscribers(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, bus.Publish(session.Event{Seq: uint64(i)}))
	}
	assert.False(t, bus.Drain(20*time.Millisecond), "nothing has been read yet")

	collect(t, ch, 3)
	assert.True(t, bus.Drain(time.Second))
}

func TestDrainIgnoresEndedSubscriptions(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	require.NoError(t, bus.Publish(session.Event{Seq: 1}))
	assert.True(t, bus.Drain(time.Second))
}

func TestSubscriberSeesSessionEventsInOrder(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	const n = 500
	for i := 1; i <= n; i++ {
		bus.Notify(session.Event{SessionID: "s1", Seq: uint64(i), Kind: session.EventStatusChanged})
	}

	for i, ev := range collect(t, ch, n) {
		require.Equal(t, uint64(i+1), ev.Seq, "event %d out of order", i)
	}
}

func TestConcurrentPublishersAreReordered(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	// Two settling tasks publish interleaved halves of one session.
	const n = 200
	var wg sync.WaitGroup
	for start := 1; start <= 2; start++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for seq := start; seq <= n; seq += 2 {
				bus.Notify(session.Event{SessionID: "s1", Seq: uint64(seq)})
			}
		}(start)
	}

	got := collect(t, ch, n)
	wg.Wait()
	for i, ev := range got {
		require.Equal(t, uint64(i+1), ev.Seq)
	}
}

func TestLateSubscriberStartsAfterPublishedEvents(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	// 3 is still in flight when the subscriber joins; 4 has already gone out.
	for _, seq := range []uint64{1, 2, 4} {
		require.NoError(t, bus.Publish(session.Event{SessionID: "s1", Seq: seq}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(session.Event{SessionID: "s1", Seq: 5}))
	require.NoError(t, bus.Publish(session.Event{SessionID: "s1", Seq: 3}))
	require.NoError(t, bus.Publish(session.Event{SessionID: "s2", Seq: 1}))

	var s1 []uint64
	for _, ev := range collect(t, ch, 3) {
		if ev.SessionID == "s1" {
			s1 = append(s1, ev.Seq)
		}
	}
	assert.Equal(t, []uint64{3, 5}, s1)
	assert.True(t, bus.Drain(time.Second))
}
