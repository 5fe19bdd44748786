package space

import (
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestFiniteIndexRoundTrip(t *testing.T) {
	f, err := NewFinite([]string{"up", "down", "left", "right"})
	if err != nil {
		t.Fatalf("NewFinite: %v", err)
	}
	for i := 0; i < f.Size(); i++ {
		e, ok := f.FromIndex(i)
		if !ok {
			t.Fatalf("FromIndex(%d) not ok", i)
		}
		if f.ToIndex(e) != i {
			t.Errorf("ToIndex(FromIndex(%d)) = %d, want %d", i, f.ToIndex(e), i)
		}
	}
	if f.ToIndex("nowhere") != -1 {
		t.Errorf("ToIndex of absent element should be -1")
	}
}

func TestFiniteDuplicateRejected(t *testing.T) {
	if _, err := NewFinite([]int{1, 2, 2}); err == nil {
		t.Errorf("expected error for duplicate elements")
	}
}

func TestFiniteOneHotFeatures(t *testing.T) {
	f, _ := NewFinite([]int{10, 20, 30})
	out := make([]float64, f.NumFeatures())
	if err := f.Features(20, false, out); err != nil {
		t.Fatalf("Features: %v", err)
	}
	want := []float64{0, 1, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestIntervalSampleBounded(t *testing.T) {
	iv := NewInterval(-1, 1)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		x := iv.Sample(rng).(float64)
		if x < -1 || x > 1 {
			t.Fatalf("sample %v out of bounds", x)
		}
	}
}

func TestIntervalSubsetOf(t *testing.T) {
	inner := NewInterval(-1, 1)
	outer := NewInterval(-2, 2)
	if !inner.SubsetOf(outer) {
		t.Errorf("[-1,1] should be a subset of [-2,2]")
	}
	if outer.SubsetOf(inner) {
		t.Errorf("[-2,2] should not be a subset of [-1,1]")
	}
}

func TestBooleanCapabilities(t *testing.T) {
	var b Boolean
	if b.ToIndex(true) != 1 || b.ToIndex(false) != 0 {
		t.Errorf("unexpected Boolean.ToIndex mapping")
	}
	e, ok := b.FromIndex(1)
	if !ok || e.(bool) != true {
		t.Errorf("FromIndex(1) = %v, %v, want true, true", e, ok)
	}
}

func TestSingletonOnlyContainsItsElement(t *testing.T) {
	s := Singleton{Elem: "only"}
	if !s.Contains("only") {
		t.Errorf("Singleton should contain its own element")
	}
	if s.Contains("other") {
		t.Errorf("Singleton should not contain a different element")
	}
	if s.NumFeatures() != 0 {
		t.Errorf("Singleton.NumFeatures() = %d, want 0", s.NumFeatures())
	}
}

func TestOptionContainsNoneAndSome(t *testing.T) {
	o := Option{Inner: NewInterval(0, 1)}
	if !o.Contains(None()) {
		t.Errorf("Option should always contain None")
	}
	if !o.Contains(Some(0.5)) {
		t.Errorf("Option should contain Some(x) when inner contains x")
	}
	if o.Contains(Some(5.0)) {
		t.Errorf("Option should not contain Some(x) when inner rejects x")
	}
}

func TestOptionFeaturesPresenceFlag(t *testing.T) {
	o := Option{Inner: NewInterval(0, 1)}
	out := make([]float64, o.NumFeatures())
	if err := o.Features(None(), false, out); err != nil {
		t.Fatalf("Features(None): %v", err)
	}
	if out[0] != 0 {
		t.Errorf("presence flag for None = %v, want 0", out[0])
	}
	if err := o.Features(Some(0.75), false, out); err != nil {
		t.Fatalf("Features(Some): %v", err)
	}
	if out[0] != 1 || out[1] != 0.75 {
		t.Errorf("Features(Some(0.75)) = %v, want [1 0.75]", out)
	}
}

func TestProductSizeAndIndexRoundTrip(t *testing.T) {
	a, _ := NewFinite([]int{0, 1})
	b, _ := NewFinite([]string{"x", "y", "z"})
	p := NewProduct(a, b)

	if p.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", p.Size())
	}
	for i := 0; i < p.Size(); i++ {
		e, ok := p.FromIndex(i)
		if !ok {
			t.Fatalf("FromIndex(%d) not ok", i)
		}
		if p.ToIndex(e) != i {
			t.Errorf("ToIndex(FromIndex(%d)) = %d, want %d", i, p.ToIndex(e), i)
		}
	}
}

func TestProductContainsRequiresEveryComponent(t *testing.T) {
	a, _ := NewFinite([]int{0, 1})
	b, _ := NewFinite([]string{"x", "y"})
	p := NewProduct(a, b)

	if !p.Contains([]Element{0, "x"}) {
		t.Errorf("expected tuple to be contained")
	}
	if p.Contains([]Element{0, "nope"}) {
		t.Errorf("tuple with an absent component should not be contained")
	}
}

func TestProductFeaturesConcatenates(t *testing.T) {
	a, _ := NewFinite([]int{0, 1})
	b, _ := NewFinite([]int{0, 1, 2})
	p := NewProduct(a, b)

	if p.NumFeatures() != 5 {
		t.Fatalf("NumFeatures() = %d, want 5", p.NumFeatures())
	}
	out := mat.NewDense(1, 5, nil)
	if err := p.BatchFeatures([]Element{[]Element{1, 2}}, false, out); err != nil {
		t.Fatalf("BatchFeatures: %v", err)
	}
	want := []float64{0, 1, 0, 0, 1}
	for i, w := range want {
		if out.At(0, i) != w {
			t.Errorf("out[0][%d] = %v, want %v", i, out.At(0, i), w)
		}
	}
}

func TestProductSubsetOfComponentwise(t *testing.T) {
	inner := NewProduct(NewInterval(-1, 1), NewInterval(0, 1))
	outer := NewProduct(NewInterval(-2, 2), NewInterval(-1, 2))
	if !inner.SubsetOf(outer) {
		t.Errorf("expected componentwise subset to hold")
	}
}
