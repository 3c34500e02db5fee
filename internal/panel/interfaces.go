package panel

import (
	"context"
	"time"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

// Device is a connected control surface. *device.Live implements it.
type Device interface {
	DrawKey(i int, paint canvas.Painter) error
	DrawScreen(d protocol.Display, paint canvas.Painter) error
	SetButtonColor(i int, color string) error
	Vibrate(pattern byte) error
	Events() <-chan device.Event
	Close() error
}

// Telemetry is the simulator connection. *xplane.Client implements it.
type Telemetry interface {
	Subscribe(ctx context.Context, dataref string, rateHz float64, fn func(float64)) error
	SendCommand(ctx context.Context, name string) error
	Close() error
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks; tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var (
	_ Device = (*device.Live)(nil)
)
