package pregel

import "testing"

func TestSumAggregatorCombine(t *testing.T) {
	a := NewSumAggregator()
	a.Aggregate(1.0)
	a.Aggregate(2.0)

	b := NewSumAggregator()
	b.Aggregate(4.0)

	a.Combine(b)

	if got := a.Value().(float64); got != 7.0 {
		t.Fatalf("combined sum = %v, want 7.0", got)
	}
}

func TestSumAggregatorResetClearsState(t *testing.T) {
	a := NewSumAggregator()
	a.Aggregate(10.0)
	a.Reset()

	if got := a.Value().(float64); got != 0 {
		t.Fatalf("value after Reset = %v, want 0", got)
	}
}

func TestAggregatorRegistryBarrierPromotesCurrentToPrevious(t *testing.T) {
	factories := map[string]func() Aggregator{"total": NewSumAggregator}
	reg := newAggregatorRegistry(factories)

	if _, ok := reg.Previous("total"); ok {
		t.Fatalf("Previous before any barrier should report not-ok")
	}

	partial := reg.forPartition()
	partial["total"].Aggregate(5.0)
	reg.combine(partial)
	reg.barrier()

	v, ok := reg.Previous("total")
	if !ok {
		t.Fatalf("Previous after barrier should report ok")
	}
	if v.(float64) != 5.0 {
		t.Fatalf("Previous(\"total\") = %v, want 5.0", v)
	}
}

func TestAggregatorRegistryCombinesAcrossPartitions(t *testing.T) {
	factories := map[string]func() Aggregator{"total": NewSumAggregator}
	reg := newAggregatorRegistry(factories)

	p1 := reg.forPartition()
	p1["total"].Aggregate(3.0)
	p2 := reg.forPartition()
	p2["total"].Aggregate(4.0)

	reg.combine(p1)
	reg.combine(p2)
	reg.barrier()

	v, _ := reg.Previous("total")
	if v.(float64) != 7.0 {
		t.Fatalf("combined total across partitions = %v, want 7.0", v)
	}
}
