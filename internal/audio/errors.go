package audio

import "errors"

var (
	ErrSubsystemInit           = errors.New("audio subsystem initialization failed")
	ErrSubsystem               = errors.New("audio subsystem query failed")
	ErrNoInputDevices          = errors.New("no input devices found")
	ErrInvalidDeviceIndex      = errors.New("invalid input device index")
	ErrUnsupportedChannelCount = errors.New("device does not support the requested channel count")
	ErrStreamOpen              = errors.New("failed to open audio stream")
	ErrStreamStart             = errors.New("failed to start audio stream")
	ErrStreamStop              = errors.New("failed to stop audio stream")
	ErrStreamClose             = errors.New("failed to close audio stream")
	ErrSessionState            = errors.New("invalid capture session state")
)
