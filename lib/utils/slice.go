package utils

import (
	"reflect"

	"golang.org/x/exp/constraints"
)

func Map[T any, R any](a []T, mapper func(T) R) []R {
	res := make([]R, len(a))
	for i, v := range a {
		res[i] = mapper(v)
	}
	return res
}

func IndexOf[T any](a []T, v T) int {
	for i, val := range a {
		// stupid compiler doesn't understand T is always comparable to T
		if reflect.DeepEqual(val, v) {
			return i
		}
	}
	return -1
}

// Clamp bounds v to [lo, hi]. When hi < lo the result is lo.
func Clamp[T constraints.Integer](v, lo, hi T) T {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
