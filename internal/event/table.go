package event

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dshills/agentcore/internal/event/topic"
)

// table indexes subscribers by the pattern they subscribed with. A bus
// carries a handful of patterns, so matching walks all of them.
type table struct {
	mu        sync.RWMutex
	byPattern map[topic.Topic][]*subscriber
	size      int
}

func newTable() *table {
	return &table{byPattern: make(map[topic.Topic][]*subscriber)}
}

func (t *table) insert(s *subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byPattern[s.pattern] = append(t.byPattern[s.pattern], s)
	t.size++
}

func (t *table) remove(s *subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()

	subs := t.byPattern[s.pattern]
	i := slices.Index(subs, s)
	if i < 0 {
		return
	}
	t.size--
	if len(subs) == 1 {
		delete(t.byPattern, s.pattern)
		return
	}
	// Copy so a snapshot taken by an in-flight Publish stays intact.
	t.byPattern[s.pattern] = slices.Delete(slices.Clone(subs), i, i+1)
}

// snapshot returns the subscribers for eventTopic in delivery order.
func (t *table) snapshot(eventTopic topic.Topic) []*subscriber {
	var out []*subscriber
	t.mu.RLock()
	for pattern, subs := range t.byPattern {
		if eventTopic.Matches(pattern) {
			out = append(out, subs...)
		}
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b *subscriber) int {
		if c := cmp.Compare(a.opts.priority, b.opts.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (t *table) active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, subs := range t.byPattern {
		for _, s := range subs {
			if s.Active() {
				n++
			}
		}
	}
	return n
}

func (t *table) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}
