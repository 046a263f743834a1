package source

// Option applies a configuration option to the loader.
type Option func(*loader)

// WithDelimiter sets the field delimiter. Defaults to a comma.
func WithDelimiter(r rune) Option {
	return func(l *loader) {
		if r != 0 {
			l.delimiter = r
		}
	}
}

// WithLazyQuotes tolerates bare quotes inside unquoted fields.
func WithLazyQuotes(lazy bool) Option {
	return func(l *loader) {
		l.lazyQuotes = lazy
	}
}

// WithKeepTrailingEmpty keeps a trailing unnamed all-empty column.
func WithKeepTrailingEmpty(keep bool) Option {
	return func(l *loader) {
		l.keepTrailing = keep
	}
}
