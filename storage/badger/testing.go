package badger

// NewMemoryBackend opens an in-memory backend for tests.
func NewMemoryBackend() (*Backend, error) {
	return OpenBackend("", true)
}

// NewMemoryRepository creates an in-memory signal repository for tests.
func NewMemoryRepository() (*SignalRepository, error) {
	backend, err := NewMemoryBackend()
	if err != nil {
		return nil, err
	}
	return NewSignalRepository(backend), nil
}
