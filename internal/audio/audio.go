package audio

import "time"

// Driver is the boundary to the process-wide audio subsystem.
// Initialize must succeed before any other call and Terminate is called
// exactly once afterwards; Host enforces both.
type Driver interface {
	Initialize() error
	Terminate() error
	// Devices returns every device known to the subsystem in its native
	// enumeration order, including output-only devices.
	Devices() ([]Device, error)
	// OpenInputStream opens an input-only stream that invokes deliver from
	// the subsystem's real-time thread once per available block.
	OpenInputStream(params StreamParams, deliver DeliverFunc) (Stream, error)
}

// Stream is an open subsystem stream.
// Stop must not return until no further deliver invocations can occur.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// DeliverFunc receives one block of interleaved samples. The slice is
// only valid for the duration of the call.
type DeliverFunc func(block []int16) Continuation

// Continuation tells the subsystem whether to keep delivering blocks.
type Continuation int

const (
	Continue Continuation = iota
	Complete
)

// Device is an immutable snapshot of one subsystem device.
type Device struct {
	Index                  int
	Name                   string
	MaxInputChannels       int
	DefaultLowInputLatency time.Duration
	DefaultSampleRate      float64
}

// CaptureConfig is fixed for the lifetime of one session.
type CaptureConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	// Latency overrides the device's default low input latency when non-zero.
	Latency time.Duration
	// Reserve is the number of samples pre-allocated in the capture buffer.
	Reserve int
}

// BitDepth is the width of every captured sample.
const BitDepth = 16

// StreamParams is what the driver needs to open an input stream.
type StreamParams struct {
	Device          Device
	Channels        int
	SampleRate      float64
	FramesPerBuffer int
	Latency         time.Duration
}
