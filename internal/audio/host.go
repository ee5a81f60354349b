package audio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Host holds the initialized audio subsystem for the process lifetime.
// Release terminates the subsystem and is safe to defer on every exit path.
type Host struct {
	driver Driver
	log    zerolog.Logger

	mu      sync.Mutex
	catalog []Device

	release sync.Once
}

// Acquire initializes the subsystem behind driver.
func Acquire(driver Driver, log zerolog.Logger) (*Host, error) {
	if err := driver.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubsystemInit, err)
	}
	log.Debug().Msg("Audio subsystem initialized")
	return &Host{driver: driver, log: log}, nil
}

// Release terminates the subsystem. Only the first call has any effect.
func (h *Host) Release() {
	h.release.Do(func() {
		if err := h.driver.Terminate(); err != nil {
			h.log.Error().Err(err).Msg("Failed to terminate audio subsystem")
			return
		}
		h.log.Debug().Msg("Audio subsystem terminated")
	})
}

// ListInputDevices returns the devices that can capture, in the
// subsystem's native order. The result becomes the catalog that Open
// validates device indexes against.
func (h *Host) ListInputDevices() ([]Device, error) {
	all, err := h.driver.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubsystem, err)
	}

	inputs := make([]Device, 0, len(all))
	for _, d := range all {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}

	h.mu.Lock()
	h.catalog = inputs
	h.mu.Unlock()

	if len(inputs) == 0 {
		return nil, ErrNoInputDevices
	}

	result := make([]Device, len(inputs))
	copy(result, inputs)
	return result, nil
}

// DescribeDevice returns the device at index in the subsystem's current
// enumeration, whether or not it can capture.
func (h *Host) DescribeDevice(index int) (Device, error) {
	all, err := h.driver.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrSubsystem, err)
	}
	for _, d := range all {
		if d.Index == index {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %d (have %d devices)", ErrInvalidDeviceIndex, index, len(all))
}

// lookup finds index in the most recent catalog result.
func (h *Host) lookup(index int) (Device, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, d := range h.catalog {
		if d.Index == index {
			return d, true
		}
	}
	return Device{}, false
}
