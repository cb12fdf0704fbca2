package chat

import "sync"

// outbox is an unbounded two-lane FIFO for outbound lines. The priority lane
// is always drained before the normal lane; Push never blocks.
type outbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	prio   []string
	norm   []string
	closed bool
}

func newOutbox() *outbox {
	q := &outbox{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *outbox) Push(line string, priority bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	if priority {
		q.prio = append(q.prio, line)
	} else {
		q.norm = append(q.norm, line)
	}
	q.cond.Signal()
}

// Pop blocks until an item is available or the outbox is closed. priority
// reports which lane the item came from; ok is false once closed.
func (q *outbox) Pop() (line string, priority, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.prio) == 0 && len(q.norm) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return "", false, false
	}
	if len(q.prio) > 0 {
		line = q.prio[0]
		q.prio = q.prio[1:]
		return line, true, true
	}
	line = q.norm[0]
	q.norm = q.norm[1:]
	return line, false, true
}

// TryPopPriority drains one priority-lane item without blocking.
func (q *outbox) TryPopPriority() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.prio) == 0 {
		return "", false
	}
	line := q.prio[0]
	q.prio = q.prio[1:]
	return line, true
}

func (q *outbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.prio) + len(q.norm)
}

func (q *outbox) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// fifo is an unbounded single-lane blocking queue, used for the membership
// pacing worker.
type fifo struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newFifo() *fifo {
	q := &fifo{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *fifo) Push(item string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.items = append(q.items, item)
	q.cond.Signal()
}

func (q *fifo) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return "", false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *fifo) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}
