package store

import (
	"sort"
	"sync"

	"github.com/expire-adapter/expire-go/pkg/model"
)

// notification is one queued delivery.
type notification struct {
	id     string
	object *model.Object
	state  *model.State
	kind   notificationKind
	flush  chan struct{}
}

type notificationKind uint8

const (
	kindObject notificationKind = iota
	kindState
	kindFlush
)

// Dispatcher delivers object and state notifications to subscribers in
// publication order on a single goroutine.
type Dispatcher struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue  []notification
	closed bool

	nextID     uint64
	objectSubs map[uint64]ObjectHandler
	stateSubs  map[uint64]StateHandler

	done chan struct{}
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		objectSubs: make(map[uint64]ObjectHandler),
		stateSubs:  make(map[uint64]StateHandler),
		done:       make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// SubscribeObjects registers an object handler.
func (d *Dispatcher) SubscribeObjects(h ObjectHandler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.objectSubs[id] = h

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.objectSubs, id)
	}
}

// SubscribeStates registers a state handler.
func (d *Dispatcher) SubscribeStates(h StateHandler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.stateSubs[id] = h

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.stateSubs, id)
	}
}

// PublishObject queues an object notification. obj may be nil (deleted).
func (d *Dispatcher) PublishObject(id string, obj *model.Object) {
	d.enqueue(notification{kind: kindObject, id: id, object: obj})
}

// PublishState queues a state notification. state may be nil (deleted).
func (d *Dispatcher) PublishState(id string, state *model.State) {
	d.enqueue(notification{kind: kindState, id: id, state: state})
}

// Flush blocks until every notification published before the call has been
// delivered. It returns immediately once the dispatcher is closed.
func (d *Dispatcher) Flush() {
	ch := make(chan struct{})
	if !d.enqueue(notification{kind: kindFlush, flush: ch}) {
		return
	}
	select {
	case <-ch:
	case <-d.done:
	}
}

// Close stops delivery. Queued notifications are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.queue = nil
	d.cond.Broadcast()
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) enqueue(n notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.queue = append(d.queue, n)
	d.cond.Signal()
	return true
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		n := d.queue[0]
		d.queue[0] = notification{}
		d.queue = d.queue[1:]

		var objectHandlers []ObjectHandler
		var stateHandlers []StateHandler
		switch n.kind {
		case kindObject:
			objectHandlers = sortedHandlers(d.objectSubs)
		case kindState:
			stateHandlers = sortedHandlers(d.stateSubs)
		}
		d.mu.Unlock()

		// Deliver outside the lock so handlers may publish or subscribe
		switch n.kind {
		case kindObject:
			for _, h := range objectHandlers {
				h(n.id, n.object.Clone())
			}
		case kindState:
			for _, h := range stateHandlers {
				h(n.id, n.state.Clone())
			}
		case kindFlush:
			close(n.flush)
		}
	}
}

// sortedHandlers returns handlers in subscription order.
func sortedHandlers[H any](subs map[uint64]H) []H {
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]H, len(ids))
	for i, id := range ids {
		out[i] = subs[id]
	}
	return out
}
