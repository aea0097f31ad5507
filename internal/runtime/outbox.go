package runtime

import (
	"sync"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

type envelope struct {
	gen   uint64
	event domain.Event
	delay time.Duration
}

// sendRetry is how long delivery waits before offering an event again to a full channel.
const sendRetry = 10 * time.Millisecond

// outbox delivers events in FIFO order, waiting each envelope's delay before delivery.
// A single goroutine is the only writer of the output channel, and it only writes
// while holding mu, so reset can drain the channel without racing a stale send.
type outbox struct {
	mu      sync.Mutex
	queue   []envelope
	gen     uint64
	visible []domain.Event

	notify chan struct{}
	out    chan domain.Event
	done   chan struct{}
	once   sync.Once
	now    func() time.Time

	detached bool
}

func newOutbox(now func() time.Time, detached bool) *outbox {
	o := &outbox{
		notify:   make(chan struct{}, 1),
		out:      make(chan domain.Event, 64),
		done:     make(chan struct{}),
		now:      now,
		detached: detached,
	}
	go o.loop()
	return o
}

func (o *outbox) push(ev domain.Event, delay time.Duration) {
	o.mu.Lock()
	o.queue = append(o.queue, envelope{gen: o.gen, event: ev, delay: delay})
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// reset drops every event of the previous generation, including unread ones on the channel.
func (o *outbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.queue = nil
	o.visible = nil
	for {
		select {
		case _, ok := <-o.out:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (o *outbox) events() <-chan domain.Event {
	return o.out
}

func (o *outbox) delivered() (uint64, []domain.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.Event, len(o.visible))
	copy(out, o.visible)
	return o.gen, out
}

func (o *outbox) close() {
	o.once.Do(func() { close(o.done) })
}

func (o *outbox) next() (envelope, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return envelope{}, false
	}
	env := o.queue[0]
	o.queue = o.queue[1:]
	return env, true
}

func (o *outbox) loop() {
	defer close(o.out)
	for {
		env, ok := o.next()
		if !ok {
			select {
			case <-o.notify:
				continue
			case <-o.done:
				return
			}
		}

		if env.delay > 0 {
			timer := time.NewTimer(env.delay)
			select {
			case <-timer.C:
			case <-o.done:
				timer.Stop()
				return
			}
		}

		o.mu.Lock()
		if env.gen != o.gen {
			o.mu.Unlock()
			continue
		}
		ev := env.event
		ev.At = o.now()
		o.visible = append(o.visible, ev)
		o.mu.Unlock()

		if o.detached {
			continue
		}
		if !o.send(env.gen, ev) {
			return
		}
	}
}

// send offers ev until the consumer takes it or its generation is reset.
// It reports false once the outbox is closed.
func (o *outbox) send(gen uint64, ev domain.Event) bool {
	for {
		o.mu.Lock()
		if gen != o.gen {
			o.mu.Unlock()
			return true
		}
		select {
		case o.out <- ev:
			o.mu.Unlock()
			return true
		default:
		}
		o.mu.Unlock()

		timer := time.NewTimer(sendRetry)
		select {
		case <-timer.C:
		case <-o.done:
			timer.Stop()
			return false
		}
	}
}
