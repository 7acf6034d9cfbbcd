package responder

import "time"

type Option func(*Meta)

func WithTraceID(id string) Option {
	return func(m *Meta) {
		m.TraceId = id
	}
}

func WithTook(ms int64) Option {
	return func(m *Meta) {
		m.Took = ms
	}
}

// WithStart sets Took to the milliseconds elapsed since start.
func WithStart(start time.Time) Option {
	return WithTook(time.Since(start).Milliseconds())
}

func NewMeta(opts ...Option) *Meta {
	meta := Meta{}
	for _, opt := range opts {
		opt(&meta)
	}
	return &meta
}
