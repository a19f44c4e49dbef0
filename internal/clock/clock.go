package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies wall-clock time to services.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock to Fx.
var Module = fx.Provide(NewSystem)

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
