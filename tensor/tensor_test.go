package tensor

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	cases := [][]float64{
		{1, 2, 3},
		{0, 0, 0},
		{-1000, 1000, 0},
		{5},
	}
	for _, x := range cases {
		p := Softmax(x)
		sum := 0.0
		for _, v := range p {
			if v < 0 || math.IsNaN(v) {
				t.Fatalf("softmax(%v) produced invalid entry %v", x, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("softmax(%v) summed to %v, want 1", x, sum)
		}
	}
}

func TestLogSumExpMatchesNaive(t *testing.T) {
	x := []float64{1, 2, 3}
	want := math.Log(math.Exp(1) + math.Exp(2) + math.Exp(3))
	got := LogSumExp(x)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogSumExp(%v) = %v, want %v", x, got, want)
	}
}

func TestEntropyUniformIsMaximal(t *testing.T) {
	uniform := Uniform(4)
	peaked := []float64{0.97, 0.01, 0.01, 0.01}
	if Entropy(uniform) <= Entropy(peaked) {
		t.Errorf("uniform entropy %v should exceed peaked entropy %v",
			Entropy(uniform), Entropy(peaked))
	}
}

func TestKLSelfIsZero(t *testing.T) {
	p := []float64{0.2, 0.3, 0.5}
	if d := KL(p, p); math.Abs(d) > 1e-12 {
		t.Errorf("KL(p,p) = %v, want 0", d)
	}
}

func TestNormalizeColumnsStochastic(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 2, 0, 0, 2})
	NormalizeColumns(m)
	if !ColumnStochastic(m, 1e-9) {
		t.Errorf("NormalizeColumns did not produce a column-stochastic matrix: %v",
			mat.Formatted(m))
	}
}

func TestNormalizeColumnsDegenerateColumn(t *testing.T) {
	// A column of all zeros is degenerate; NormalizeColumns must not
	// divide by zero and must still leave a valid distribution.
	m := mat.NewDense(3, 1, []float64{0, 0, 0})
	NormalizeColumns(m)
	if !ColumnStochastic(m, 1e-9) {
		t.Errorf("degenerate column not recovered to uniform: %v",
			mat.Formatted(m))
	}
}

func TestDirichletSampleNormalizes(t *testing.T) {
	src := NewSource(42)
	alpha := []float64{1, 1, 1, 1}
	sample := DirichletSample(src, alpha)
	sum := 0.0
	for _, v := range sample {
		if v < 0 {
			t.Fatalf("Dirichlet sample has negative entry: %v", sample)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Dirichlet sample summed to %v, want 1", sum)
	}
}

func TestDeterministicSource(t *testing.T) {
	a := NewSource(7)
	b := NewSource(7)
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("two sources with the same seed diverged at draw %d", i)
		}
	}
}
