package aggregate

import "github.com/chebyrash/promise"

// Plugin is a long running part of the program.
type Plugin interface {
	// Called in the order the plugins were given to New
	Init() error
	// Must not block: long work settles the returned promise
	Start() *promise.Promise[any]
	// Called in reverse order once the run is over
	Stop() error
}
