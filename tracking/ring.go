package tracking

import "image"

// pointRing is a fixed-capacity ring buffer of centroids. Insert is O(1);
// once full the oldest point is overwritten.
type pointRing struct {
	buf  []image.Point
	head int // index of the next write
	n    int
}

func newPointRing(capacity int) *pointRing {
	if capacity < 1 {
		capacity = 1
	}
	return &pointRing{buf: make([]image.Point, capacity)}
}

func (r *pointRing) Push(p image.Point) {
	r.buf[r.head] = p
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *pointRing) Len() int { return r.n }

// Last returns the most recently pushed point.
func (r *pointRing) Last() (image.Point, bool) {
	if r.n == 0 {
		return image.Point{}, false
	}
	return r.buf[(r.head-1+len(r.buf))%len(r.buf)], true
}

// Points returns the stored centroids oldest first.
func (r *pointRing) Points() []image.Point {
	out := make([]image.Point, 0, r.n)
	start := (r.head - r.n + len(r.buf)) % len(r.buf)
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
