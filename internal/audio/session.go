package audio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a capture session.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateRunning
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recording is the final contents of a closed session. The caller owns
// Samples.
type Recording struct {
	Samples    []int16
	SampleRate int
	Channels   int
	// Dropped counts blocks the delivery callback absorbed instead of
	// appending.
	Dropped uint64
}

// Frames returns the number of whole frames captured.
func (r Recording) Frames() int {
	if r.Channels == 0 {
		return 0
	}
	return len(r.Samples) / r.Channels
}

// Session owns one input stream and its capture buffer.
type Session struct {
	device Device
	cfg    CaptureConfig
	log    zerolog.Logger

	// mu serializes lifecycle calls from the controller. The delivery
	// callback never takes it.
	mu     sync.Mutex
	state  State
	stream Stream
	buf    *buffer
	final  *Recording

	// lent is true while the callback may append to buf.
	lent     atomic.Bool
	inflight atomic.Int32
	dropped  atomic.Uint64
}

// Open validates index against the most recent catalog and opens an input
// stream on it. No stream is opened when validation fails.
func (h *Host) Open(index int, cfg CaptureConfig) (*Session, error) {
	device, ok := h.lookup(index)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDeviceIndex, index)
	}
	if cfg.Channels <= 0 || device.MaxInputChannels < cfg.Channels {
		return nil, fmt.Errorf("%w: %q supports %d, requested %d",
			ErrUnsupportedChannelCount, device.Name, device.MaxInputChannels, cfg.Channels)
	}
	if cfg.SampleRate <= 0 || cfg.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, frames per buffer %d",
			ErrStreamOpen, cfg.SampleRate, cfg.FramesPerBuffer)
	}

	latency := cfg.Latency
	if latency == 0 {
		latency = device.DefaultLowInputLatency
	}

	s := &Session{
		device: device,
		cfg:    cfg,
		log:    h.log.With().Int("device", device.Index).Logger(),
		state:  StateIdle,
		buf:    newBuffer(cfg.Channels, cfg.Reserve),
	}

	stream, err := h.driver.OpenInputStream(StreamParams{
		Device:          device,
		Channels:        cfg.Channels,
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: cfg.FramesPerBuffer,
		Latency:         latency,
	}, s.deliver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamOpen, err)
	}

	s.stream = stream
	s.state = StateOpen
	s.log.Info().
		Str("name", device.Name).
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Int("frames_per_buffer", cfg.FramesPerBuffer).
		Dur("latency", latency).
		Msg("Stream opened")
	return s, nil
}

// Device returns the device the session was opened on.
func (s *Session) Device() Device { return s.device }

// Config returns the session's capture configuration.
func (s *Session) Config() CaptureConfig { return s.cfg }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins delivery. On failure the session stays Open.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return fmt.Errorf("%w: start while %s", ErrSessionState, s.state)
	}

	s.lent.Store(true)
	if err := s.stream.Start(); err != nil {
		s.revoke()
		return fmt.Errorf("%w: %w", ErrStreamStart, err)
	}

	s.state = StateRunning
	s.log.Info().Msg("Capture started")
	return nil
}

// Stop ends delivery and returns only once the callback has quiesced.
// Calling Stop on a stopped or closed session is a no-op. Stopping an Open
// session (a start that never succeeded) is best effort and only logs.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() error {
	switch s.state {
	case StateStopped, StateClosed:
		return nil
	case StateOpen:
		s.revoke()
		if err := s.stream.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("Stop on idle stream failed")
		}
		s.state = StateStopped
		return nil
	case StateRunning:
	default:
		return fmt.Errorf("%w: stop while %s", ErrSessionState, s.state)
	}

	s.lent.Store(false)
	err := s.stream.Stop()
	s.revoke()
	s.state = StateStopped

	s.log.Info().
		Int("samples", s.buf.len()).
		Uint64("dropped_blocks", s.dropped.Load()).
		Msg("Capture stopped")

	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamStop, err)
	}
	return nil
}

// revoke withdraws the callback's write access and waits for any
// invocation already past the check to finish.
func (s *Session) revoke() {
	s.lent.Store(false)
	for s.inflight.Load() != 0 {
		runtime.Gosched()
	}
}

// Close releases the stream. A session that is still Open or Running is
// stopped first. After Close the recording is final.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	var stopErr error
	if s.state != StateStopped {
		stopErr = s.stopLocked()
		if stopErr != nil {
			s.log.Error().Err(stopErr).Msg("Stop before close failed")
		}
	}

	err := s.stream.Close()
	s.state = StateClosed
	s.final = &Recording{
		Samples:    s.buf.samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Dropped:    s.dropped.Load(),
	}
	s.buf = nil
	s.stream = nil

	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamClose, err)
	}
	return stopErr
}

// Recording returns the captured audio. It is only available once the
// session is closed.
func (s *Session) Recording() (*Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return nil, fmt.Errorf("%w: recording requested while %s", ErrSessionState, s.state)
	}
	return s.final, nil
}
