// Package events carries session events from the controller to the
// subscribers that render or record them, over an in-process watermill
// pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"

	"github.com/planet-dev/planet/internal/session"
)

// Topic is the watermill topic session events are published on.
const Topic = "session.events"

// Bus publishes session events to any number of subscribers. Publishing
// never waits for subscribers. The gochannel pub/sub hands each message
// over on its own goroutine, so every subscription reorders by Event.Seq
// and releases a session's events one at a time, in order.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu        sync.Mutex
	published uint64
	sessions  map[string]*sessionSeqs
	subs      []*subscription
}

// sessionSeqs tracks which sequence numbers of one session have been
// published.
type sessionSeqs struct {
	// low is the smallest sequence number not yet published.
	low   uint64
	ahead map[uint64]struct{}
}

func (s *sessionSeqs) mark(seq uint64) {
	switch {
	case seq < s.low:
	case seq == s.low:
		s.low++
		for {
			if _, ok := s.ahead[s.low]; !ok {
				break
			}
			delete(s.ahead, s.low)
			s.low++
		}
	default:
		s.ahead[seq] = struct{}{}
	}
}

// subscription tracks how far one subscriber has read.
type subscription struct {
	ctx       context.Context
	start     uint64
	delivered atomic.Uint64
}

// New creates a Bus that logs through logger. A nil logger discards
// watermill's own logging.
func New(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 128,
		}, logger),
		sessions: make(map[string]*sessionSeqs),
	}
}

// Notify implements session.Notifier.
func (b *Bus) Notify(ev session.Event) {
	if err := b.Publish(ev); err != nil {
		log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("failed to publish session event")
	}
}

// Publish encodes ev and publishes it on Topic. Sequence numbers of a
// session start at 1; events with Seq 0 are delivered unordered.
func (b *Bus) Publish(ev session.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(ev.Kind))
	msg.Metadata.Set("session", ev.SessionID)

	// Held across the publish so a concurrent Subscribe sees the event
	// either as published before it or as delivered to it.
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return err
	}
	b.published++
	if ev.Seq > 0 {
		seqs, ok := b.sessions[ev.SessionID]
		if !ok {
			seqs = &sessionSeqs{low: 1, ahead: make(map[uint64]struct{})}
			b.sessions[ev.SessionID] = seqs
		}
		seqs.mark(ev.Seq)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The channel is closed when
// ctx ends or the bus is closed. Events of each session arrive in Seq
// order, starting after whatever the session published before Subscribe.
func (b *Bus) Subscribe(ctx context.Context) (<-chan session.Event, error) {
	b.mu.Lock()
	msgs, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("subscribing to %s: %w", Topic, err)
	}
	sub := &subscription{ctx: ctx, start: b.published}
	b.subs = append(b.subs, sub)
	order := newReorder(b.sessions)
	b.mu.Unlock()

	out := make(chan session.Event)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev session.Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("uuid", msg.UUID).Msg("dropping undecodable event")
				sub.delivered.Add(1)
				msg.Ack()
				continue
			}
			// Ack before holding the event back: gochannel sends the next
			// message only after this one is acked.
			msg.Ack()
			for _, ready := range order.push(ev) {
				select {
				case out <- ready:
					sub.delivered.Add(1)
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// reorder releases each session's events in Seq order.
type reorder struct {
	sessions map[string]*pendingSeqs
}

type pendingSeqs struct {
	next uint64
	// skip holds sequence numbers published before the subscription; they
	// will never arrive.
	skip    map[uint64]struct{}
	pending map[uint64]session.Event
}

// newReorder starts from what was already published. Caller holds the bus
// lock.
func newReorder(published map[string]*sessionSeqs) *reorder {
	r := &reorder{sessions: make(map[string]*pendingSeqs, len(published))}
	for id, seqs := range published {
		p := &pendingSeqs{
			next:    seqs.low,
			skip:    make(map[uint64]struct{}, len(seqs.ahead)),
			pending: make(map[uint64]session.Event),
		}
		for seq := range seqs.ahead {
			p.skip[seq] = struct{}{}
		}
		r.sessions[id] = p
	}
	return r
}

// push accepts ev and returns the events now ready, in order.
func (r *reorder) push(ev session.Event) []session.Event {
	if ev.Seq == 0 {
		return []session.Event{ev}
	}
	p, ok := r.sessions[ev.SessionID]
	if !ok {
		p = &pendingSeqs{
			next:    1,
			skip:    make(map[uint64]struct{}),
			pending: make(map[uint64]session.Event),
		}
		r.sessions[ev.SessionID] = p
	}
	if ev.Seq < p.next {
		return []session.Event{ev}
	}
	p.pending[ev.Seq] = ev

	var ready []session.Event
	for {
		if _, ok := p.skip[p.next]; ok {
			delete(p.skip, p.next)
			p.next++
			continue
		}
		next, ok := p.pending[p.next]
		if !ok {
			break
		}
		delete(p.pending, p.next)
		ready = append(ready, next)
		p.next++
	}
	return ready
}

// Drain waits until every live subscriber has received everything
// published so far, or until timeout. It reports whether they caught up.
// Call it before Close so recorders see the final events.
func (b *Bus) Drain(timeout time.Duration) bool {
	b.mu.Lock()
	target := b.published
	b.mu.Unlock()
	deadline := time.Now().Add(timeout)
	for {
		if b.caughtUp(target) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (b *Bus) caughtUp(target uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.ctx.Err() != nil {
			continue
		}
		if sub.start+sub.delivered.Load() < target {
			return false
		}
	}
	return true
}

// Close stops delivery to all subscribers.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

var _ session.Notifier = (*Bus)(nil)
