package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock reads so metric windows stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystem returns a Clock backed by the system time in UTC.
func NewSystem() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)
