package utils

import (
	"github.com/chebyrash/promise"
)

// PromiseResolve returns a promise already settled with val.
func PromiseResolve[T any](val T) *promise.Promise[T] {
	return promise.New(func(resolve func(T), reject func(error)) {
		resolve(val)
	})
}
