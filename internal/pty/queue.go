package pty

import "sync"

// outQueue is the single-producer single-consumer path between the PTY
// reader and the session's subscriber. Chunks pushed before subscribe
// accumulate (bounded by the scrollback limit, oldest evicted); once a
// subscriber attaches, a pump goroutine replays the backlog in order
// and then forwards live chunks. This makes the buffer-then-replay
// guarantee mechanical: there is one queue and one drain order.
type outQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	chunks   [][]byte
	bytes    int
	limit    int
	closed   bool
	attached bool
}

func newOutQueue(limit int) *outQueue {
	q := &outQueue{limit: limit}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *outQueue) push(p []byte) {
	chunk := make([]byte, len(p))
	copy(chunk, p)

	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.bytes += len(chunk)

	// Evict only while unattached: an attached consumer applies its own
	// backpressure and must not lose output.
	if !q.attached {
		for q.bytes > q.limit && len(q.chunks) > 1 {
			q.bytes -= len(q.chunks[0])
			q.chunks = q.chunks[1:]
		}
	}
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *outQueue) closeQueue() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *outQueue) subscribe() <-chan []byte {
	q.mu.Lock()
	if q.attached {
		q.mu.Unlock()
		panic("pty: output stream subscribed twice")
	}
	q.attached = true
	q.mu.Unlock()

	out := make(chan []byte, 16)
	go q.pump(out)
	return out
}

func (q *outQueue) pump(out chan<- []byte) {
	for {
		q.mu.Lock()
		for len(q.chunks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.chunks) == 0 && q.closed {
			q.mu.Unlock()
			close(out)
			return
		}
		chunk := q.chunks[0]
		q.chunks = q.chunks[1:]
		q.bytes -= len(chunk)
		q.mu.Unlock()

		out <- chunk
	}
}
