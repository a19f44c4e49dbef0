package kitchen

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/fx"

	"github.com/Additional-Code/restaurant/internal/config"
)

// PrepTimer assigns preparation minutes to newly placed orders.
type PrepTimer interface {
	Next() int32
	Bounds() (min, max int32)
}

// Module provides the configured PrepTimer to Fx.
var Module = fx.Provide(func(cfg config.Config) (PrepTimer, error) {
	return NewUniform(cfg.Kitchen.PrepTimeMin, cfg.Kitchen.PrepTimeMax)
})

type uniform struct {
	min, max int32
}

// NewUniform draws minutes uniformly from [min, max).
func NewUniform(min, max int) (PrepTimer, error) {
	if min < 0 || max <= min || max > 1<<31-1 {
		return nil, fmt.Errorf("invalid preparation time range [%d, %d)", min, max)
	}
	return uniform{min: int32(min), max: int32(max)}, nil
}

func (u uniform) Next() int32 {
	return u.min + rand.Int32N(u.max-u.min)
}

func (u uniform) Bounds() (int32, int32) {
	return u.min, u.max
}

type fixed int32

// NewFixed always assigns the same number of minutes.
func NewFixed(minutes int32) PrepTimer {
	return fixed(minutes)
}

func (f fixed) Next() int32 {
	return int32(f)
}

func (f fixed) Bounds() (int32, int32) {
	return int32(f), int32(f) + 1
}
