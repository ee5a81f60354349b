// Package audiotest provides an in-memory audio.Driver for tests.
//
// Streams started by the Driver deliver a scripted list of blocks from
// their own goroutine, which stands in for the subsystem's real-time
// thread. Stop waits for that goroutine to exit.
package audiotest

import (
	"sync"

	"github.com/petems/mic-recorder/internal/audio"
)

// Driver is a scriptable audio.Driver. Set the exported fields before use.
type Driver struct {
	DeviceList []audio.Device
	// Blocks is delivered, in order, by every stream after Start.
	Blocks [][]int16

	InitErr    error
	TermErr    error
	DevicesErr error
	OpenErr    error
	StartErr   error
	StopErr    error
	CloseErr   error

	mu           sync.Mutex
	inits        int
	terminations int
	streams      []*Stream
}

// NewDriver returns a driver exposing devices. Each device's Index is set
// to its position.
func NewDriver(devices ...audio.Device) *Driver {
	for i := range devices {
		devices[i].Index = i
	}
	return &Driver{DeviceList: devices}
}

func (d *Driver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.InitErr != nil {
		return d.InitErr
	}
	d.inits++
	return nil
}

func (d *Driver) Terminate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.terminations++
	return d.TermErr
}

func (d *Driver) Devices() ([]audio.Device, error) {
	if d.DevicesErr != nil {
		return nil, d.DevicesErr
	}
	out := make([]audio.Device, len(d.DeviceList))
	copy(out, d.DeviceList)
	return out, nil
}

func (d *Driver) OpenInputStream(params audio.StreamParams, deliver audio.DeliverFunc) (audio.Stream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s := &Stream{
		Params:    params,
		driver:    d,
		deliver:   deliver,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		delivered: make(chan struct{}),
	}
	d.streams = append(d.streams, s)
	return s, nil
}

// Inits reports how many times Initialize succeeded.
func (d *Driver) Inits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inits
}

// Terminations reports how many times Terminate was called.
func (d *Driver) Terminations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.terminations
}

// Streams returns every stream opened so far.
func (d *Driver) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Stream, len(d.streams))
	copy(out, d.streams)
	return out
}

// Stream is a fake audio.Stream.
type Stream struct {
	Params audio.StreamParams

	driver  *Driver
	deliver audio.DeliverFunc

	mu          sync.Mutex
	started     bool
	stops       int
	closes      int
	invocations int

	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
	delivered chan struct{}
}

func (s *Stream) Start() error {
	if s.driver.StartErr != nil {
		return s.driver.StartErr
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	go s.run()
	return nil
}

func (s *Stream) run() {
	defer close(s.done)

	for _, block := range s.driver.Blocks {
		select {
		case <-s.stop:
			close(s.delivered)
			return
		default:
		}
		if s.Deliver(block) == audio.Complete {
			break
		}
	}
	close(s.delivered)
	<-s.stop
}

// Deliver invokes the stream's callback directly, as the subsystem would.
func (s *Stream) Deliver(block []int16) audio.Continuation {
	s.mu.Lock()
	s.invocations++
	s.mu.Unlock()
	return s.deliver(block)
}

// Delivered is closed once every scripted block has been handed over or
// the stream was stopped first.
func (s *Stream) Delivered() <-chan struct{} { return s.delivered }

func (s *Stream) Stop() error {
	s.mu.Lock()
	s.stops++
	started := s.started
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
	if started {
		<-s.done
	}
	return s.driver.StopErr
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return s.driver.CloseErr
}

// Invocations reports how many times the callback ran.
func (s *Stream) Invocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invocations
}

// Stops reports how many times Stop reached the stream.
func (s *Stream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Closes reports how many times Close reached the stream.
func (s *Stream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
