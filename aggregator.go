package pregel

import "sync"

// Aggregator is a per-superstep reduction registered by the user. Aggregate
// is called (possibly concurrently, once per partition worker) during a
// superstep; Combine folds one partition's partial result into another's;
// the combined Value becomes visible to UDFs starting the *next*
// superstep, never the one that produced it.
type Aggregator interface {
	// Reset clears any accumulated state, preparing for a new superstep.
	Reset()
	// Aggregate folds a single value into the running result.
	Aggregate(value any)
	// Combine merges another Aggregator instance of the same kind into
	// this one. It is used to fold per-partition partial aggregates into
	// one job-wide result at the superstep barrier.
	Combine(other Aggregator)
	// Value returns the current accumulated result.
	Value() any
}

// aggregatorRegistry owns the named aggregators for a job and the
// previous-superstep snapshot exposed to UDFs via SuperstepContext.
type aggregatorRegistry struct {
	mu        sync.Mutex
	factories map[string]func() Aggregator
	current   map[string]Aggregator
	previous  map[string]any
}

func newAggregatorRegistry(factories map[string]func() Aggregator) *aggregatorRegistry {
	return &aggregatorRegistry{
		factories: factories,
		current:   make(map[string]Aggregator),
		previous:  make(map[string]any),
	}
}

// forPartition returns a fresh, per-partition-worker instance of every
// registered aggregator kind, to be combined back at the barrier.
func (r *aggregatorRegistry) forPartition() map[string]Aggregator {
	out := make(map[string]Aggregator, len(r.factories))
	for name, factory := range r.factories {
		out[name] = factory()
	}
	return out
}

// combine folds one partition worker's partial aggregates into the job's
// running totals for the superstep that just finished.
func (r *aggregatorRegistry) combine(partial map[string]Aggregator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, agg := range partial {
		if existing, ok := r.current[name]; ok {
			existing.Combine(agg)
		} else {
			r.current[name] = agg
		}
	}
}

// barrier promotes this superstep's combined aggregates to "previous" (the
// values readable by UDFs in the next superstep) and resets current state.
func (r *aggregatorRegistry) barrier() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, agg := range r.current {
		r.previous[name] = agg.Value()
	}
	r.current = make(map[string]Aggregator)
}

// Previous returns the value an aggregator produced in the prior superstep,
// or nil, false if it has not run yet (superstep 1) or is unregistered.
func (r *aggregatorRegistry) Previous(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.previous[name]
	return v, ok
}

// SumAggregator is a ready-made Aggregator for float64 sums, sparing every
// caller from hand-writing the trivial case.
type SumAggregator struct {
	total float64
}

// NewSumAggregator returns an Aggregator summing float64 values.
func NewSumAggregator() Aggregator { return &SumAggregator{} }

func (s *SumAggregator) Reset()             { s.total = 0 }
func (s *SumAggregator) Aggregate(v any)    { s.total += toFloat64(v) }
func (s *SumAggregator) Combine(o Aggregator) {
	if other, ok := o.(*SumAggregator); ok {
		s.total += other.total
	}
}
func (s *SumAggregator) Value() any { return s.total }

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}
