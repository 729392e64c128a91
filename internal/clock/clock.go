package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock time so status resolution stays testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real system clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
