package weighted

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-wavg/internal/dataset"
	"github.com/cwbudde/algo-wavg/internal/testutil"
)

const tolerance = 1e-12

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestAverage(t *testing.T) {
	cases := []struct {
		name    string
		values  []float64
		weights []float64
		want    float64
		ok      bool
	}{
		// (6+15+10)/10; the 3.4 sometimes quoted for this input is wrong.
		{name: "closed form", values: []float64{3, 5, 2}, weights: []float64{2, 3, 5}, want: 3.1, ok: true},
		{name: "length mismatch", values: []float64{1, 2}, weights: []float64{1, 1, 1}},
		{name: "one side empty", values: nil, weights: []float64{1}},
		{name: "zero weights", values: []float64{1, 2, 3}, weights: []float64{0, 0, 0}},
		{name: "empty", values: []float64{}, weights: []float64{}},
		{name: "nil", values: nil, weights: nil},
		{name: "negative weight", values: []float64{10}, weights: []float64{-1}, want: 10, ok: true},
		{name: "cancelling weights", values: []float64{4, 8}, weights: []float64{1, -1}},
		{name: "uniform weights", values: []float64{1, 2, 3, 4}, weights: []float64{2, 2, 2, 2}, want: 2.5, ok: true},
		{name: "single", values: []float64{-7.25}, weights: []float64{0.5}, want: -7.25, ok: true},
		{name: "mixed sign weights", values: []float64{1, 2, 3}, weights: []float64{3, -1, 1}, want: 4.0 / 3.0, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Average(tc.values, tc.weights, WithLogger(discardLogger()))
			if ok != tc.ok {
				t.Fatalf("Average() ok = %v, want %v (value %v)", ok, tc.ok, got)
			}
			if ok {
				testutil.RequireNearlyEqual(t, got, tc.want, tolerance)
			} else if got != 0 {
				t.Fatalf("absent result carries value %v", got)
			}
		})
	}
}

func TestAverageDiagnostics(t *testing.T) {
	cases := []struct {
		name    string
		values  []float64
		weights []float64
		want    []string
	}{
		{name: "success", values: []float64{1, 2}, weights: []float64{1, 1}},
		{
			name:    "length mismatch",
			values:  []float64{1, 2},
			weights: []float64{1, 1, 1},
			want:    []string{"level=ERROR", "length of values and weights must be the same", "values=2", "weights=3"},
		},
		{
			name:    "zero total weight",
			values:  []float64{1, 2, 3},
			weights: []float64{0, 0, 0},
			want:    []string{"level=ERROR", "total weight is zero", "length=3"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			Average(tc.values, tc.weights, WithLogger(bufferLogger(&buf)))

			out := buf.String()
			if len(tc.want) == 0 {
				if out != "" {
					t.Fatalf("unexpected diagnostics on success: %q", out)
				}
				return
			}
			if n := strings.Count(out, "\n"); n != 1 {
				t.Fatalf("got %d diagnostic lines, want 1: %q", n, out)
			}
			for _, s := range tc.want {
				if !strings.Contains(out, s) {
					t.Fatalf("diagnostic %q missing %q", out, s)
				}
			}
		})
	}
}

func TestCompute(t *testing.T) {
	got, err := Compute([]float64{3, 5, 2}, []float64{2, 3, 5})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	testutil.RequireNearlyEqual(t, got, 3.1, tolerance)

	_, err = Compute([]float64{1, 2}, []float64{1, 1, 1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Compute() error = %v, want ErrLengthMismatch", err)
	}
	if !strings.Contains(err.Error(), "values has 2 elements, weights has 3") {
		t.Fatalf("error %q lacks lengths", err)
	}

	_, err = Compute([]float64{1, 2, 3}, []float64{0, 0, 0})
	if !errors.Is(err, ErrZeroTotalWeight) {
		t.Fatalf("Compute() error = %v, want ErrZeroTotalWeight", err)
	}

	_, err = Compute(nil, nil)
	if !errors.Is(err, ErrZeroTotalWeight) {
		t.Fatalf("Compute(nil, nil) error = %v, want ErrZeroTotalWeight", err)
	}
}

func TestComputeDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	_, _ = Compute([]float64{1}, nil, WithLogger(bufferLogger(&buf)))
	_, _ = Compute([]float64{1}, []float64{0}, WithLogger(bufferLogger(&buf)))
	if buf.Len() != 0 {
		t.Fatalf("Compute wrote diagnostics: %q", buf.String())
	}
}

func TestAverageLargeRampAcrossConfigurations(t *testing.T) {
	n := 1_000_000
	if testing.Short() {
		n = 100_000
	}
	values, weights := dataset.Pair(n)
	want, _ := dataset.RampMean(n)
	eps := testutil.ReductionTolerance(n)

	for _, workers := range []int{1, 2, 3, 8} {
		for _, minChunk := range []int{1, 1000, 4096} {
			got, ok := Average(values, weights, WithWorkers(workers), WithMinChunk(minChunk))
			if !ok {
				t.Fatalf("workers=%d minChunk=%d: absent result", workers, minChunk)
			}
			if !testutil.NearlyEqual(got, want, eps) {
				t.Fatalf("workers=%d minChunk=%d: got %v, want %v (eps %v)", workers, minChunk, got, want, eps)
			}
		}
	}
}

func TestAverageRepeatable(t *testing.T) {
	values := testutil.DeterministicUniform(7, 1, 10, 50_000)
	weights := testutil.DeterministicUniform(8, 0, 1, 50_000)

	first, ok := Average(values, weights, WithMinChunk(512))
	if !ok {
		t.Fatal("absent result")
	}
	for range 5 {
		again, ok := Average(values, weights, WithMinChunk(512))
		if !ok {
			t.Fatal("absent result")
		}
		testutil.RequireNearlyEqual(t, again, first, testutil.ReductionTolerance(len(values)))
	}
}

func TestAverageMatchesGonum(t *testing.T) {
	for _, n := range []int{1, 2, 17, 4096, 4097, 100_000} {
		values := testutil.DeterministicUniform(int64(n), 1, 10, n)
		weights := testutil.DeterministicUniform(int64(n)+1, 0.1, 1, n)
		want := stat.Mean(values, weights)

		for _, workers := range []int{1, 4} {
			got, ok := Average(values, weights, WithWorkers(workers), WithMinChunk(64))
			if !ok {
				t.Fatalf("n=%d workers=%d: absent result", n, workers)
			}
			if !testutil.NearlyEqual(got, want, 1e-10) {
				t.Fatalf("n=%d workers=%d: got %v, gonum %v", n, workers, got, want)
			}
		}
	}
}

func TestAverageDoesNotModifyInputs(t *testing.T) {
	values := testutil.DeterministicUniform(1, -5, 5, 10_000)
	weights := testutil.DeterministicUniform(2, 0, 1, 10_000)
	v0 := append([]float64(nil), values...)
	w0 := append([]float64(nil), weights...)

	Average(values, weights, WithWorkers(4), WithMinChunk(100))

	for i := range values {
		if values[i] != v0[i] || weights[i] != w0[i] {
			t.Fatalf("input modified at index %d", i)
		}
	}
}

func TestNonFinitePolicy(t *testing.T) {
	cases := []struct {
		name    string
		values  []float64
		weights []float64
		wantNaN bool
		wantInf bool
	}{
		{name: "nan weight", values: []float64{1, 2}, weights: []float64{math.NaN(), 1}, wantNaN: true},
		{name: "nan value", values: []float64{math.NaN(), 2}, weights: []float64{1, 1}, wantNaN: true},
		{name: "inf value", values: []float64{math.Inf(1), 2}, weights: []float64{1, 1}, wantInf: true},
		{name: "inf weight", values: []float64{1, 2}, weights: []float64{math.Inf(1), 1}, wantNaN: true},
	}

	for _, tc := range cases {
		t.Run(tc.name+"/propagate", func(t *testing.T) {
			got, err := Compute(tc.values, tc.weights)
			if err != nil {
				t.Fatalf("Compute() error = %v, want propagated value", err)
			}
			if tc.wantNaN && !math.IsNaN(got) {
				t.Fatalf("got %v, want NaN", got)
			}
			if tc.wantInf && !math.IsInf(got, 1) {
				t.Fatalf("got %v, want +Inf", got)
			}
		})

		t.Run(tc.name+"/reject", func(t *testing.T) {
			_, err := Compute(tc.values, tc.weights, WithNonFinitePolicy(NonFiniteReject))
			if !errors.Is(err, ErrNonFinite) {
				t.Fatalf("Compute() error = %v, want ErrNonFinite", err)
			}

			var buf bytes.Buffer
			_, ok := Average(tc.values, tc.weights,
				WithNonFinitePolicy(NonFiniteReject), WithLogger(bufferLogger(&buf)))
			if ok {
				t.Fatal("Average() present under NonFiniteReject")
			}
			if !strings.Contains(buf.String(), "weighted average is not finite") {
				t.Fatalf("missing diagnostic: %q", buf.String())
			}
		})
	}
}

func TestRejectKeepsFiniteResults(t *testing.T) {
	got, err := Compute([]float64{3, 5, 2}, []float64{2, 3, 5}, WithNonFinitePolicy(NonFiniteReject))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	testutil.RequireNearlyEqual(t, got, 3.1, tolerance)

	_, err = Compute([]float64{1}, []float64{0}, WithNonFinitePolicy(NonFiniteReject))
	if !errors.Is(err, ErrZeroTotalWeight) {
		t.Fatalf("Compute() error = %v, want ErrZeroTotalWeight", err)
	}
}

func TestReduce(t *testing.T) {
	p, err := Reduce([]float64{3, 5, 2}, []float64{2, 3, 5})
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if p.Sum != 31 || p.Weight != 10 {
		t.Fatalf("Reduce() = %+v, want {31 10}", p)
	}

	p, err = Reduce([]float64{1, 2}, []float64{0, 0})
	if err != nil || p != (Partial{}) {
		t.Fatalf("Reduce(zero weights) = (%+v, %v), want zero pair", p, err)
	}

	if _, err := Reduce([]float64{1}, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Reduce() error = %v, want ErrLengthMismatch", err)
	}
}

func TestPartial(t *testing.T) {
	a := Partial{Sum: 6, Weight: 2}
	b := Partial{Sum: 25, Weight: 8}

	if got := a.Merge(b); got != (Partial{Sum: 31, Weight: 10}) {
		t.Fatalf("Merge() = %+v", got)
	}
	if got := a.Merge(Partial{}); got != a {
		t.Fatalf("zero Partial is not the identity: %+v", got)
	}

	if m, ok := a.Merge(b).Mean(); !ok || m != 3.1 {
		t.Fatalf("Mean() = (%v, %v), want (3.1, true)", m, ok)
	}
	if _, ok := (Partial{Sum: 1}).Mean(); ok {
		t.Fatal("Mean() present for zero weight")
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	reports []Report
}

func (o *recordingObserver) ObserveCompute(r Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	opts := []Option{WithObserver(obs), WithLogger(discardLogger()), WithWorkers(4), WithMinChunk(10)}

	values, weights := dataset.Pair(100)
	Average(values, weights, opts...)
	Average([]float64{1}, []float64{1, 2}, opts...)
	_, _ = Compute([]float64{1}, []float64{0}, opts...)

	if len(obs.reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(obs.reports))
	}

	ok := obs.reports[0]
	if ok.Err != nil || ok.Length != 100 || ok.Chunks != 4 || ok.Duration < 0 {
		t.Fatalf("success report = %+v", ok)
	}
	if r := obs.reports[1]; !errors.Is(r.Err, ErrLengthMismatch) || r.Chunks != 0 {
		t.Fatalf("mismatch report = %+v", r)
	}
	if r := obs.reports[2]; !errors.Is(r.Err, ErrZeroTotalWeight) || r.Chunks != 1 {
		t.Fatalf("zero weight report = %+v", r)
	}
}

func TestAverageConcurrentCallers(t *testing.T) {
	values, weights := dataset.Pair(20_000)
	want, _ := dataset.RampMean(20_000)

	var wg sync.WaitGroup
	bad := make(chan float64, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := Average(values, weights, WithWorkers(3), WithMinChunk(256))
			if !ok || !testutil.NearlyEqual(got, want, testutil.ReductionTolerance(len(values))) {
				bad <- got
			}
		}()
	}
	wg.Wait()
	close(bad)

	for got := range bad {
		t.Errorf("concurrent call returned %v, want %v", got, want)
	}
}
