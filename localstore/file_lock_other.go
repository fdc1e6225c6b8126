//go:build !unix

package localstore

// Without flock only the in-process mutex guards the store.
func lockFile(string, bool) (func(), error) { return func() {}, nil }
