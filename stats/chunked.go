package stats

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Aggregate is the chunk-boundary summary of one id's entries since the
// last flush. Which fields are meaningful depends on Variant: counters
// sum into Sum; durations and scalars populate Count/Mean/Variance/
// Min/Max; indices populate Buckets.
type Aggregate struct {
	Variant string

	// Sum: populated for Count.
	Sum uint64

	// Count, Mean, Variance, Min, Max: populated for Duration and
	// Scalar (Duration values are converted to float64 seconds first).
	Count    int
	Mean     float64
	Variance float64
	Min      float64
	Max      float64

	// Buckets: populated for Index, one count per bucket in [0, size).
	Buckets []uint64
}

func newAggregate(variant string, size int) *Aggregate {
	a := &Aggregate{Variant: variant, Min: math.Inf(1), Max: math.Inf(-1)}
	if variant == "index" {
		a.Buckets = make([]uint64, size)
	}
	return a
}

// addScalar folds one observation into a running Welford mean/variance.
func (a *Aggregate) addScalar(x float64) {
	a.Count++
	delta := x - a.Mean
	a.Mean += delta / float64(a.Count)
	a.Variance += delta * (x - a.Mean)
	if x < a.Min {
		a.Min = x
	}
	if x > a.Max {
		a.Max = x
	}
}

func (a *Aggregate) finalize() {
	if a.Count > 1 {
		a.Variance /= float64(a.Count - 1)
	} else {
		a.Variance = 0
	}
}

type idState struct {
	id      Id
	variant string
	size    int // for index, the fixed size every entry must agree on
	agg     *Aggregate
}

// FlushPolicy configures when ChunkedLogger flushes its accumulated
// aggregates. Exactly one of Watch/Interval should be set; if both are
// zero-valued the logger never flushes on its own (callers must call
// Flush explicitly).
type FlushPolicy struct {
	// Watch, if non-empty, is the id whose Count increments drive chunk
	// boundaries: a flush fires every Every increments.
	Watch Id
	Every uint64

	// Interval, if non-zero, additionally flushes on wall-clock time.
	Interval time.Duration
}

// ChunkedLogger is the concrete Logger sink: it aggregates per-id
// entries and flushes them on a chunk boundary, handing the finished
// aggregates to a caller-supplied callback. It does not write to any
// file or TensorBoard client itself — sink-side emission is left to the
// callback.
//
// Grounded on expreplay/ExpReplay.go's sync.Mutex-guarded shared-cache
// pattern, generalized from a fixed-size ring buffer to per-id
// aggregate state keyed by the id's string form.
type ChunkedLogger struct {
	mu      sync.Mutex
	states  map[string]*idState
	policy  FlushPolicy
	onFlush func(id Id, agg Aggregate)
	lastFlush time.Time
	groupDepth int
	watchCount uint64
}

// NewChunkedLogger builds a root ChunkedLogger with the given flush
// policy. onFlush is called once per id per flush, synchronously, while
// the logger's mutex is held — it must not call back into the logger.
func NewChunkedLogger(policy FlushPolicy, onFlush func(id Id, agg Aggregate)) *ChunkedLogger {
	return &ChunkedLogger{
		states:    make(map[string]*idState),
		policy:    policy,
		onFlush:   onFlush,
		lastFlush: time.Now(),
	}
}

func (l *ChunkedLogger) Log(id Id, v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := id.String()
	st, ok := l.states[key]
	if !ok {
		size := 0
		if _, sz, isIdx := AsIndex(v); isIdx {
			size = sz
		}
		st = &idState{id: append(Id{}, id...), variant: v.Variant(), size: size, agg: newAggregate(v.Variant(), size)}
		l.states[key] = st
	} else if st.variant != v.Variant() {
		panic(fmt.Sprintf("stats: id %q previously logged as %s, now logged as %s",
			key, st.variant, v.Variant()))
	}

	switch st.variant {
	case "nothing":
		// no payload to aggregate
	case "count":
		n, _ := AsCount(v)
		st.agg.Sum += n
	case "duration":
		d, _ := AsDuration(v)
		st.agg.addScalar(d.Seconds())
	case "scalar":
		s, _ := AsScalar(v)
		st.agg.addScalar(s)
	case "index":
		val, size, _ := AsIndex(v)
		if size != st.size {
			panic(fmt.Sprintf("stats: id %q previously logged with index size %d, now size %d",
				key, st.size, size))
		}
		if val >= 0 && val < len(st.agg.Buckets) {
			st.agg.Buckets[val]++
		}
	}

	if key == l.policy.Watch.String() && l.policy.Every > 0 {
		l.watchCount++
		if l.watchCount >= l.policy.Every {
			l.watchCount = 0
			l.flushLocked()
		}
	}
	if l.policy.Interval > 0 && !l.lastFlush.IsZero() && time.Since(l.lastFlush) >= l.policy.Interval {
		l.flushLocked()
	}
}

// flushLocked must be called with l.mu held. It is a no-op while a
// Group is open.
func (l *ChunkedLogger) flushLocked() {
	if l.groupDepth > 0 {
		return
	}
	for _, st := range l.states {
		st.agg.finalize()
		if l.onFlush != nil {
			l.onFlush(st.id, *st.agg)
		}
		st.agg = newAggregate(st.variant, st.size)
	}
	l.lastFlush = time.Now()
}

// Flush forces an immediate flush regardless of policy, unless a Group
// is currently open.
func (l *ChunkedLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushLocked()
}

func (l *ChunkedLogger) Scope(name string) Logger {
	return &scopedLogger{parent: l, prefix: MustId(name)}
}

func (l *ChunkedLogger) Group() (Logger, func()) {
	l.mu.Lock()
	l.groupDepth++
	l.mu.Unlock()
	closed := false
	return l, func() {
		if closed {
			return
		}
		closed = true
		l.mu.Lock()
		l.groupDepth--
		if l.groupDepth == 0 {
			l.flushLocked()
		}
		l.mu.Unlock()
	}
}

// scopedLogger prepends prefix to every id before delegating to parent.
type scopedLogger struct {
	parent Logger
	prefix Id
}

func (s *scopedLogger) Log(id Id, v Value) { s.parent.Log(id.Prepend(s.prefix), v) }

func (s *scopedLogger) Scope(name string) Logger {
	nested := append(append(Id{}, s.prefix...), MustId(name)...)
	return &scopedLogger{parent: s.parent, prefix: nested}
}

func (s *scopedLogger) Group() (Logger, func()) {
	inner, closer := s.parent.Group()
	return &scopedLogger{parent: inner, prefix: s.prefix}, closer
}
