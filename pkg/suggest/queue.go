package suggest

import (
	"bytes"
	"math/bits"
)

// better ranks paths by score descending, then by input ascending.
func better(a, b *SearchPath) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return bytes.Compare(a.Input, b.Input) < 0
}

// pathQueue is a min-max heap of search paths. Even levels hold paths that rank better
// than all their descendants and odd levels paths that rank worse, so both the best and
// the worst path are reachable in O(1) and removable in O(log n).
type pathQueue struct {
	items []*SearchPath
}

func newPathQueue(capacity int) *pathQueue {
	if capacity > 64 {
		capacity = 64
	}
	return &pathQueue{items: make([]*SearchPath, 0, capacity+1)}
}

func (q *pathQueue) Len() int { return len(q.items) }

func (q *pathQueue) less(i, j int) bool { return better(q.items[i], q.items[j]) }

func (q *pathQueue) swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

// isMinLevel reports whether index i sits on an even level.
func isMinLevel(i int) bool { return (bits.Len(uint(i+1))-1)%2 == 0 }

func (q *pathQueue) push(p *SearchPath) {
	q.items = append(q.items, p)
	q.pushUp(len(q.items) - 1)
}

// best returns the highest ranked path without removing it.
func (q *pathQueue) best() *SearchPath {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// worstIndex returns the index of the lowest ranked path, or -1 when empty.
func (q *pathQueue) worstIndex() int {
	switch len(q.items) {
	case 0:
		return -1
	case 1:
		return 0
	case 2:
		return 1
	}
	if q.less(1, 2) {
		return 2
	}
	return 1
}

// worst returns the lowest ranked path without removing it.
func (q *pathQueue) worst() *SearchPath {
	i := q.worstIndex()
	if i < 0 {
		return nil
	}
	return q.items[i]
}

// popBest removes and returns the highest ranked path.
func (q *pathQueue) popBest() *SearchPath {
	if len(q.items) == 0 {
		return nil
	}
	return q.removeAt(0)
}

// popWorst removes and returns the lowest ranked path.
func (q *pathQueue) popWorst() *SearchPath {
	i := q.worstIndex()
	if i < 0 {
		return nil
	}
	return q.removeAt(i)
}

func (q *pathQueue) removeAt(i int) *SearchPath {
	last := len(q.items) - 1
	p := q.items[i]
	q.items[i] = q.items[last]
	q.items[last] = nil
	q.items = q.items[:last]
	if i < last {
		q.trickleDown(i)
	}
	return p
}

func (q *pathQueue) pushUp(i int) {
	if i == 0 {
		return
	}
	parent := (i - 1) / 2
	if isMinLevel(i) {
		if q.less(parent, i) {
			q.swap(i, parent)
			q.pushUpLevel(parent, false)
		} else {
			q.pushUpLevel(i, true)
		}
		return
	}
	if q.less(i, parent) {
		q.swap(i, parent)
		q.pushUpLevel(parent, true)
	} else {
		q.pushUpLevel(i, false)
	}
}

// pushUpLevel moves i up through its grandparents. On min levels it rises while it ranks
// better, on max levels while it ranks worse.
func (q *pathQueue) pushUpLevel(i int, minLevel bool) {
	for i > 2 {
		gp := ((i-1)/2 - 1) / 2
		if minLevel && !q.less(i, gp) || !minLevel && !q.less(gp, i) {
			return
		}
		q.swap(i, gp)
		i = gp
	}
}

func (q *pathQueue) trickleDown(i int) {
	minLevel := isMinLevel(i)
	n := len(q.items)
	for {
		// m is the best (or worst, on max levels) of i's children and grandchildren.
		m := -1
		first := 2*i + 1
		for _, c := range [...]int{first, first + 1, 2*first + 1, 2*first + 2, 2*first + 3, 2*first + 4} {
			if c >= n {
				continue
			}
			if m < 0 || minLevel && q.less(c, m) || !minLevel && q.less(m, c) {
				m = c
			}
		}
		if m < 0 {
			return
		}
		if m <= first+1 {
			if minLevel && q.less(m, i) || !minLevel && q.less(i, m) {
				q.swap(m, i)
			}
			return
		}
		if minLevel && !q.less(m, i) || !minLevel && !q.less(i, m) {
			return
		}
		q.swap(m, i)
		parent := (m - 1) / 2
		if minLevel && q.less(parent, m) || !minLevel && q.less(m, parent) {
			q.swap(m, parent)
		}
		i = m
	}
}
