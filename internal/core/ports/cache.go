package ports

// StubCache is the port interface for the process-wide stub to publication
// id mapping. Entries live for the lifetime of the process and are never
// evicted. Implementations must be safe for concurrent use; lost updates
// from racing identical-key writes are acceptable since both racing
// discoveries compute the same id.
type StubCache interface {
	// Get returns the cached publication id for a stub.
	Get(stub string) (int, bool)

	// Put records a discovered publication id for a stub.
	Put(stub string, id int)
}
