// Package tracking associates detections across consecutive frames by nearest
// centroid. Tracks are single-hop: only the immediately preceding tick's
// tracks participate in matching, and a track unmatched for one tick drops out
// of the comparison set. Retired histories stick around a little longer so the
// overlay can still draw their trails.
package tracking

import (
	"image"
	"math"

	"curbcam/config"
	"curbcam/detection"
)

// Track is one cross-frame identity. Its centroid history is capped at the
// configured window; LastSeen is the sequence number of the frame that last
// matched it.
type Track struct {
	ID       int64
	Class    config.Class
	history  *pointRing
	LastSeen int64
}

// Trail returns the centroid history oldest first, at most window entries.
func (t *Track) Trail() []image.Point { return t.history.Points() }

// Matched is one current-tick detection paired with the track that now owns it.
type Matched struct {
	Detection detection.Detection
	Track     *Track
}

// Associator matches detections against the previous tick's tracks.
// Not safe for concurrent use; the pipeline drives it from a single goroutine.
type Associator struct {
	threshold float64
	window    int

	nextID  int64
	active  map[config.Class][]*Track
	retired []*Track
}

// NewAssociator builds an associator with the given match distance threshold
// and centroid history window.
func NewAssociator(threshold float64, window int) *Associator {
	return &Associator{
		threshold: threshold,
		window:    window,
		active:    make(map[config.Class][]*Track),
	}
}

// Observe takes the current tick's detections for one class and returns each
// paired with its track. A detection whose centroid lies within the threshold
// of a previous-tick centroid of the same class continues that track; ties on
// equal distance go to the first previous track encountered, and each previous
// track is claimable by at most one detection per tick. Everything else gets a
// fresh id.
//
// The active comparison set for the next tick becomes exactly the tracks
// touched this tick: continued tracks plus new ones. Unmatched previous tracks
// retire but keep their histories for overlay trails.
func (a *Associator) Observe(class config.Class, dets []detection.Detection, seq int64) []Matched {
	prev := a.active[class]
	claimed := make([]bool, len(prev))
	current := make([]*Track, 0, len(dets))
	out := make([]Matched, 0, len(dets))

	for _, d := range dets {
		c := d.Centroid()

		best := -1
		bestDist := math.Inf(1)
		for i, t := range prev {
			if claimed[i] {
				continue
			}
			last, ok := t.history.Last()
			if !ok {
				continue
			}
			dist := euclidean(c, last)
			if dist < bestDist {
				bestDist = dist
				best = i
			}
		}

		var tr *Track
		if best >= 0 && bestDist < a.threshold {
			tr = prev[best]
			claimed[best] = true
		} else {
			a.nextID++
			tr = &Track{
				ID:      a.nextID,
				Class:   class,
				history: newPointRing(a.window),
			}
		}

		tr.history.Push(c)
		tr.LastSeen = seq
		current = append(current, tr)
		out = append(out, Matched{Detection: d, Track: tr})
	}

	// Unmatched previous tracks leave the active set now but stay renderable.
	for i, t := range prev {
		if !claimed[i] {
			a.retired = append(a.retired, t)
		}
	}
	a.pruneRetired(seq)

	a.active[class] = current
	return out
}

// Trails returns every history still worth drawing: the active tracks plus
// retired ones whose last sighting is within the history window.
func (a *Associator) Trails() []*Track {
	out := make([]*Track, 0, len(a.retired))
	for _, tracks := range a.active {
		out = append(out, tracks...)
	}
	out = append(out, a.retired...)
	return out
}

// ActiveCount reports how many tracks are in the current comparison set.
func (a *Associator) ActiveCount() int {
	n := 0
	for _, tracks := range a.active {
		n += len(tracks)
	}
	return n
}

func (a *Associator) pruneRetired(seq int64) {
	kept := a.retired[:0]
	for _, t := range a.retired {
		if seq-t.LastSeen <= int64(a.window) {
			kept = append(kept, t)
		}
	}
	a.retired = kept
}

func euclidean(p, q image.Point) float64 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return math.Hypot(dx, dy)
}
