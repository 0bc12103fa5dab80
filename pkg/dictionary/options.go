package dictionary

// Option configures rule source parsing.
type Option func(*options)

type options struct {
	sentinel string
}

func newOptions(opts []Option) options {
	o := options{sentinel: DefaultSentinel}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSentinel overrides the required-only list item. An empty value keeps
// the default.
func WithSentinel(s string) Option {
	return func(o *options) {
		if s != "" {
			o.sentinel = s
		}
	}
}
