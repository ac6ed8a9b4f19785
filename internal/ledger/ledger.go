// Package ledger keeps the process-wide invalidation counters that tell
// cached readers whether their payload is still current.
package ledger

import (
	"slices"
	"strings"
	"sync"
)

// Tag names an invalidation scope, usually a table.
type Tag string

const (
	TagMatches     Tag = "partidos"
	TagSeats       Tag = "abonos"
	TagParking     Tag = "parkings"
	TagCustomers   Tag = "clientes"
	TagUsers       Tag = "usuarios"
	TagSeatAssign  Tag = "asignaciones_abonos"
	TagSlotAssign  Tag = "asignaciones_parkings"
	TagAssignments Tag = "asignaciones"
)

func (t Tag) normalize() Tag { return Tag(strings.ToLower(strings.TrimSpace(string(t)))) }

// Stamp is a snapshot of counters. Two stamps are only meaningful when
// taken for the same tag list, and must be compared with Equal.
type Stamp []uint64

func (s Stamp) Equal(o Stamp) bool { return slices.Equal(s, o) }

// Listener is called after a bump with the tags that moved.
type Listener func(tags []Tag)

type Ledger struct {
	mu     sync.Mutex
	global uint64
	tags   map[Tag]uint64

	lmu       sync.RWMutex
	listeners []Listener
}

func New() *Ledger {
	return &Ledger{tags: make(map[Tag]uint64)}
}

// Bump advances the global counter and every named tag. It must only be
// called after the write it reports has committed.
func (l *Ledger) Bump(tags ...Tag) {
	norm := make([]Tag, 0, len(tags))
	l.mu.Lock()
	l.global++
	for _, t := range tags {
		t = t.normalize()
		if t == "" {
			continue
		}
		l.tags[t]++
		norm = append(norm, t)
	}
	l.mu.Unlock()

	l.lmu.RLock()
	ls := l.listeners
	l.lmu.RUnlock()
	for _, fn := range ls {
		fn(norm)
	}
}

// Version returns the counters for tags in order, or the global counter
// when no tags are given.
func (l *Ledger) Version(tags ...Tag) Stamp {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(tags) == 0 {
		return Stamp{l.global}
	}
	out := make(Stamp, len(tags))
	for i, t := range tags {
		out[i] = l.tags[t.normalize()]
	}
	return out
}

// Subscribe registers fn for bump notifications. Listeners run on the
// bumping goroutine and must not block.
func (l *Ledger) Subscribe(fn Listener) {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	l.listeners = append(slices.Clip(l.listeners), fn)
}
