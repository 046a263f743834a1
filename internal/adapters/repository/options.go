package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxPageSize caps the number of rows a single Page call returns.
func WithMaxPageSize(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}
