package ranking

import (
	"reflect"
	"testing"
)

type tuple struct {
	correct  int
	finished int64
	elapsed  int
	attempts int
}

func TestDense(t *testing.T) {
	cases := []struct {
		name string
		keys []string
		want []int
	}{
		{name: "empty", keys: nil, want: []int{}},
		{name: "single", keys: []string{"a"}, want: []int{1}},
		{name: "all distinct", keys: []string{"a", "b", "c"}, want: []int{1, 2, 3}},
		{name: "all tied", keys: []string{"a", "a", "a"}, want: []int{1, 1, 1}},
		{name: "mixed", keys: []string{"a", "a", "b", "c", "c", "c", "d"}, want: []int{1, 1, 2, 3, 3, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Dense(tc.keys)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDenseTupleKeys(t *testing.T) {
	keys := []tuple{
		{correct: 5, finished: 100, elapsed: 120, attempts: 5},
		{correct: 5, finished: 100, elapsed: 120, attempts: 5},
		{correct: 5, finished: 100, elapsed: 120, attempts: 6},
		{correct: 4, finished: 90, elapsed: 10, attempts: 4},
	}
	got := Dense(keys)
	want := []int{1, 1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDenseHasNoGaps(t *testing.T) {
	keys := []int{9, 9, 7, 7, 7, 3, 1, 1}
	ranks := Dense(keys)

	distinct := 0
	for i := range keys {
		if i == 0 || keys[i] != keys[i-1] {
			distinct++
		}
		if ranks[i] != distinct {
			t.Fatalf("rank at %d: expected %d, got %d", i, distinct, ranks[i])
		}
		if i > 0 && (ranks[i] == ranks[i-1]) != (keys[i] == keys[i-1]) {
			t.Fatalf("tie mismatch at %d", i)
		}
	}
}

func TestApply(t *testing.T) {
	type row struct {
		name  string
		score int
		rank  int
	}
	rows := []row{{name: "x", score: 3}, {name: "y", score: 3}, {name: "z", score: 1}}
	Apply(rows, func(r row) int { return r.score }, Dense[int], func(r *row, rank int) { r.rank = rank })

	if rows[0].rank != 1 || rows[1].rank != 1 || rows[2].rank != 2 {
		t.Fatalf("unexpected ranks: %+v", rows)
	}
}
