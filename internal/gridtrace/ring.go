package gridtrace

// ring is a bounded FIFO. Pushing onto a full ring evicts the oldest item.
type ring[T comparable] struct {
	buf   []T
	start int
	n     int
}

func newRing[T comparable](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) Len() int { return r.n }

func (r *ring[T]) Cap() int { return len(r.buf) }

// Push appends v and reports whether an item was evicted.
func (r *ring[T]) Push(v T) (evicted bool) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return false
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// At returns the i-th item, 0 being the oldest.
func (r *ring[T]) At(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns the newest item.
func (r *ring[T]) Last() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	return r.At(r.n - 1), true
}

func (r *ring[T]) Contains(v T) bool {
	for i := 0; i < r.n; i++ {
		if r.At(i) == v {
			return true
		}
	}
	return false
}

// Slice copies the items oldest first.
func (r *ring[T]) Slice() []T {
	out := make([]T, r.n)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Resize changes capacity, keeping the newest items.
func (r *ring[T]) Resize(capacity int) {
	if capacity == len(r.buf) {
		return
	}
	items := r.Slice()
	if len(items) > capacity {
		items = items[len(items)-capacity:]
	}
	r.buf = make([]T, capacity)
	r.start = 0
	r.n = copy(r.buf, items)
}
