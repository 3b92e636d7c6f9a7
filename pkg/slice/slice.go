// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package slice complements the standard [slices] package with small generic
helpers used when comparing role and permission sets.
*/
package slice

// Map maps a slice of type T to a slice of type U using the provided transformation function.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}

	return result
}

// Filter returns only elements where the predicate evaluates to true.
func Filter[T any](input []T, predicate func(T) bool) []T {
	var result []T
	for _, v := range input {
		if predicate(v) {
			result = append(result, v)
		}
	}
	return result
}

// Unique drops repeated values, keeping first occurrences in order.
func Unique[T comparable](input []T) []T {
	seen := make(map[T]struct{}, len(input))
	result := make([]T, 0, len(input))
	for _, v := range input {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// Missing returns the elements of want absent from have, in want's order.
func Missing[T comparable](want, have []T) []T {
	present := Set(have)
	return Filter(want, func(v T) bool {
		_, ok := present[v]
		return !ok
	})
}

// ContainsAny reports whether have shares at least one element with want.
func ContainsAny[T comparable](want, have []T) bool {
	present := Set(have)
	for _, v := range want {
		if _, ok := present[v]; ok {
			return true
		}
	}
	return false
}

// Set builds a membership map from input.
func Set[T comparable](input []T) map[T]struct{} {
	set := make(map[T]struct{}, len(input))
	for _, v := range input {
		set[v] = struct{}{}
	}
	return set
}
