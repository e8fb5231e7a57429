package queries

import (
	"cmp"
	"slices"
)

// Key compares two rows on one sort key.
type Key[T any] func(a, b T) int

// Asc orders rows by f ascending.
func Asc[T any, K cmp.Ordered](f func(T) K) Key[T] {
	return func(a, b T) int { return cmp.Compare(f(a), f(b)) }
}

// Desc orders rows by f descending.
func Desc[T any, K cmp.Ordered](f func(T) K) Key[T] {
	return func(a, b T) int { return cmp.Compare(f(b), f(a)) }
}

// OrderBy combines keys into one comparator; later keys break ties of
// earlier ones.
func OrderBy[T any](keys ...Key[T]) func(a, b T) int {
	return func(a, b T) int {
		for _, k := range keys {
			if c := k(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}

// Limit caps rows at n. A negative n means no limit.
func Limit[T any](rows []T, n int) []T {
	if n >= 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// sortLimit sorts rows by keys and caps them at n. It never returns nil.
func sortLimit[T any](rows []T, n int, keys ...Key[T]) []T {
	if rows == nil {
		return []T{}
	}
	slices.SortFunc(rows, OrderBy(keys...))
	return Limit(rows, n)
}

// first implements the single-result contract.
func first[T any](rows []T) (T, error) {
	if len(rows) == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return rows[0], nil
}
