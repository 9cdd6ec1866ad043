package id

import "github.com/oklog/ulid/v2"

// New returns a ULID. Event ids sort by publish time, which keeps bus logs
// and invocation ids in order.
func New() string {
	return ulid.Make().String()
}
