package stats

import "testing"

func TestIdGrammar(t *testing.T) {
	if _, err := NewId("a/b/c"); err != nil {
		t.Fatalf("NewId(a/b/c): %v", err)
	}
	if _, err := NewId("a//b"); err == nil {
		t.Errorf("expected error for empty segment")
	}
	if _, err := NewId(""); err == nil {
		t.Errorf("expected error for empty name")
	}
}

func TestScopePrependsOnTheLeft(t *testing.T) {
	var got Id
	l := NewChunkedLogger(FlushPolicy{}, func(id Id, agg Aggregate) {
		got = id
	})
	outer := l.Scope("outer")
	outer.Log(MustId("loss"), Scalar(1))
	l.Flush()
	if got.String() != "outer/loss" {
		t.Errorf("got id %q, want outer/loss", got.String())
	}
}

func TestNestedScopeOrdering(t *testing.T) {
	var got Id
	l := NewChunkedLogger(FlushPolicy{}, func(id Id, agg Aggregate) {
		got = id
	})
	nested := l.Scope("a").Scope("b")
	nested.Log(MustId("x"), Scalar(1))
	l.Flush()
	if got.String() != "a/b/x" {
		t.Errorf("got id %q, want a/b/x", got.String())
	}
}

func TestVariantConflictPanics(t *testing.T) {
	l := NewChunkedLogger(FlushPolicy{}, nil)
	l.Log(MustId("x"), Scalar(1))
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on variant conflict")
		}
	}()
	l.Log(MustId("x"), Count(1))
}

func TestCountAggregateSums(t *testing.T) {
	var got Aggregate
	l := NewChunkedLogger(FlushPolicy{}, func(id Id, agg Aggregate) {
		got = agg
	})
	l.Log(MustId("steps"), Count(3))
	l.Log(MustId("steps"), Count(4))
	l.Flush()
	if got.Sum != 7 {
		t.Errorf("Sum = %d, want 7", got.Sum)
	}
}

func TestGroupDefersFlush(t *testing.T) {
	flushed := false
	l := NewChunkedLogger(FlushPolicy{}, func(id Id, agg Aggregate) {
		flushed = true
	})
	grouped, closeGroup := l.Group()
	grouped.Log(MustId("x"), Scalar(1))
	l.Flush()
	if flushed {
		t.Errorf("flush should be deferred while a group is open")
	}
	closeGroup()
	if !flushed {
		t.Errorf("flush should fire when the group closes")
	}
}

func TestIndexBucketCounts(t *testing.T) {
	var got Aggregate
	l := NewChunkedLogger(FlushPolicy{}, func(id Id, agg Aggregate) {
		got = agg
	})
	l.Log(MustId("action"), Index(0, 3))
	l.Log(MustId("action"), Index(0, 3))
	l.Log(MustId("action"), Index(2, 3))
	l.Flush()
	want := []uint64{2, 0, 1}
	for i, w := range want {
		if got.Buckets[i] != w {
			t.Errorf("Buckets[%d] = %d, want %d", i, got.Buckets[i], w)
		}
	}
}
