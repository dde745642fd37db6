// Package ranking assigns rank numbers to already-ordered sequences.
//
// It knows nothing about students, schools or quizzes: callers sort their
// items first and pass one comparable key per item. Two items are tied only
// when their keys are equal.
package ranking

// Dense returns parallel dense ranks for keys. Tied neighbours share a rank and
// the next distinct key receives the previous rank plus one.
//
//	keys  a a b c c c d
//	ranks 1 1 2 3 3 3 4
func Dense[K comparable](keys []K) []int {
	ranks := make([]int, len(keys))
	rank := 0
	for i, key := range keys {
		if i == 0 || key != keys[i-1] {
			rank++
		}
		ranks[i] = rank
	}
	return ranks
}

// Strategy computes ranks for an ordered key sequence.
type Strategy[K comparable] func(keys []K) []int

// Apply ranks items with strategy, extracting each item's key with keyOf, and
// hands each item its rank through assign.
func Apply[T any, K comparable](items []T, keyOf func(T) K, strategy Strategy[K], assign func(*T, int)) {
	keys := make([]K, len(items))
	for i := range items {
		keys[i] = keyOf(items[i])
	}
	for i, rank := range strategy(keys) {
		assign(&items[i], rank)
	}
}
