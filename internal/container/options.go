package container

import (
	"time"

	"gorm.io/gorm/logger"
)

// Clock abstracts time retrieval so timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type options struct {
	clock  Clock
	logger logger.Interface
}

type Option func(*options)

// WithClock sets the source of create and modify timestamps.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger routes the SQL trace of the store to l.
func WithLogger(l logger.Interface) Option {
	return func(o *options) {
		o.logger = l
	}
}

type writeOptions struct {
	preservePosition bool
}

type WriteOption func(*writeOptions)

// PreservePosition makes Write put a seekable reader back where it found it,
// whether the write succeeds or not.
func PreservePosition() WriteOption {
	return func(o *writeOptions) {
		o.preservePosition = true
	}
}
