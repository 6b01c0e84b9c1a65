package dedup

import (
	"container/list"
	"sync"
)

// Default bounds for the ledger
const (
	DefaultMaxEntries   = 1000
	DefaultRetryCeiling = 3

	// evictFraction is the share of entries removed on overflow
	evictFraction = 0.2
)

// Outcome records how the last processing attempt for an id ended
type Outcome int

// Possible outcomes
const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
)

// entry is the ledger record for one transaction id
type entry struct {
	id       string
	outcome  Outcome
	failures int
}

// Ledger is a bounded, concurrency-safe record of handled transaction ids.
type Ledger struct {
	mu           sync.Mutex
	maxEntries   int
	retryCeiling int
	items        map[string]*list.Element // id -> element holding *entry
	order        *list.List               // insertion order, oldest at front
	evictions    int64
}

// Option configures a Ledger
type Option func(*Ledger)

// WithMaxEntries sets the ledger bound
func WithMaxEntries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxEntries = n
		}
	}
}

// WithRetryCeiling sets the number of recorded failures after which
// ShouldRetry reports false
func WithRetryCeiling(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.retryCeiling = n
		}
	}
}

// NewLedger creates a ledger with the default bound of 1000 entries and a
// retry ceiling of 3 failures.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		maxEntries:   DefaultMaxEntries,
		retryCeiling: DefaultRetryCeiling,
		items:        make(map[string]*list.Element),
		order:        list.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MarkSuccess records a successful processing outcome for id.
func (l *Ledger) MarkSuccess(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[id]; ok {
		elem.Value.(*entry).outcome = OutcomeSuccess
		return
	}
	l.insert(&entry{id: id, outcome: OutcomeSuccess})
}

// MarkFailure records a failed processing attempt for id, incrementing its
// failure count.
func (l *Ledger) MarkFailure(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[id]; ok {
		e := elem.Value.(*entry)
		e.outcome = OutcomeFailure
		e.failures++
		return
	}
	l.insert(&entry{id: id, outcome: OutcomeFailure, failures: 1})
}

// Seen reports whether id has a ledger entry. Evicted ids report false.
func (l *Ledger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.items[id]
	return ok
}

// Succeeded reports whether id was processed to success. Redelivery of a
// succeeded id is a no-op for callers.
func (l *Ledger) Succeeded(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	elem, ok := l.items[id]
	return ok && elem.Value.(*entry).outcome == OutcomeSuccess
}

// ShouldRetry reports whether a redelivered id is still eligible for
// processing. Unseen ids are eligible; ids at or past the retry ceiling and
// ids already processed to success are not.
func (l *Ledger) ShouldRetry(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.items[id]
	if !ok {
		return true
	}
	e := elem.Value.(*entry)
	if e.outcome == OutcomeSuccess {
		return false
	}
	return e.failures < l.retryCeiling
}

// Failures returns the recorded failure count for id.
func (l *Ledger) Failures(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if elem, ok := l.items[id]; ok {
		return elem.Value.(*entry).failures
	}
	return 0
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// Evictions returns the total number of evicted entries.
func (l *Ledger) Evictions() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evictions
}

// insert adds a new entry, evicting the oldest batch if the bound is
// exceeded. Caller holds l.mu. Re-marking an existing id never refreshes its
// insertion position.
func (l *Ledger) insert(e *entry) {
	l.items[e.id] = l.order.PushBack(e)

	if l.order.Len() <= l.maxEntries {
		return
	}

	batch := int(float64(l.maxEntries) * evictFraction)
	if batch < 1 {
		batch = 1
	}
	for i := 0; i < batch && l.order.Len() > 0; i++ {
		front := l.order.Front()
		old := front.Value.(*entry)
		l.order.Remove(front)
		delete(l.items, old.id)
		l.evictions++
	}
}
