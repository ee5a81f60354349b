package audio_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/petems/mic-recorder/internal/audio"
	"github.com/petems/mic-recorder/internal/audio/audiotest"
	"github.com/rs/zerolog"
)

func defaultConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate:      16000,
		Channels:        1,
		FramesPerBuffer: 4,
		Reserve:         16,
	}
}

func newHost(t *testing.T, drv *audiotest.Driver) *audio.Host {
	t.Helper()
	host, err := audio.Acquire(drv, zerolog.Nop())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(host.Release)
	return host
}

func micDriver() *audiotest.Driver {
	return audiotest.NewDriver(
		audio.Device{Name: "Mic A", MaxInputChannels: 2, DefaultLowInputLatency: 10 * time.Millisecond, DefaultSampleRate: 48000},
		audio.Device{Name: "Mic B", MaxInputChannels: 0},
	)
}

func TestAcquireReleaseTerminatesOnce(t *testing.T) {
	drv := micDriver()
	host, err := audio.Acquire(drv, zerolog.Nop())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	host.Release()
	host.Release()

	if drv.Terminations() != 1 {
		t.Fatalf("expected 1 termination, got %d", drv.Terminations())
	}
}

func TestAcquireInitFailure(t *testing.T) {
	drv := micDriver()
	drv.InitErr = errors.New("no backend")

	_, err := audio.Acquire(drv, zerolog.Nop())
	if !errors.Is(err, audio.ErrSubsystemInit) {
		t.Fatalf("expected ErrSubsystemInit, got %v", err)
	}
}

func TestListInputDevicesFiltersOutputOnly(t *testing.T) {
	host := newHost(t, micDriver())

	devices, err := host.ListInputDevices()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(devices) != 1 || devices[0].Index != 0 || devices[0].Name != "Mic A" {
		t.Fatalf("unexpected devices: %+v", devices)
	}
}

func TestListInputDevicesErrors(t *testing.T) {
	tests := []struct {
		name string
		drv  *audiotest.Driver
		want error
	}{
		{
			name: "count query fails",
			drv: func() *audiotest.Driver {
				d := micDriver()
				d.DevicesErr = errors.New("host api gone")
				return d
			}(),
			want: audio.ErrSubsystem,
		},
		{
			name: "no input capable devices",
			drv:  audiotest.NewDriver(audio.Device{Name: "Speakers"}),
			want: audio.ErrNoInputDevices,
		},
		{
			name: "no devices at all",
			drv:  audiotest.NewDriver(),
			want: audio.ErrNoInputDevices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newHost(t, tt.drv)
			if _, err := host.ListInputDevices(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDescribeDevice(t *testing.T) {
	host := newHost(t, micDriver())

	d, err := host.DescribeDevice(1)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if d.Name != "Mic B" {
		t.Fatalf("expected Mic B, got %q", d.Name)
	}

	for _, idx := range []int{-1, 2} {
		if _, err := host.DescribeDevice(idx); !errors.Is(err, audio.ErrInvalidDeviceIndex) {
			t.Fatalf("index %d: expected ErrInvalidDeviceIndex, got %v", idx, err)
		}
	}
}

func TestOpenRejectsDeviceOutsideCatalog(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)

	// Nothing listed yet.
	if _, err := host.Open(0, defaultConfig()); !errors.Is(err, audio.ErrInvalidDeviceIndex) {
		t.Fatalf("expected ErrInvalidDeviceIndex before listing, got %v", err)
	}

	if _, err := host.ListInputDevices(); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, idx := range []int{1, 7, -1} {
		if _, err := host.Open(idx, defaultConfig()); !errors.Is(err, audio.ErrInvalidDeviceIndex) {
			t.Fatalf("index %d: expected ErrInvalidDeviceIndex, got %v", idx, err)
		}
	}
	if n := len(drv.Streams()); n != 0 {
		t.Fatalf("expected no stream opened, got %d", n)
	}
}

func TestOpenRejectsTooManyChannels(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)
	host.ListInputDevices()

	cfg := defaultConfig()
	cfg.Channels = 3
	if _, err := host.Open(0, cfg); !errors.Is(err, audio.ErrUnsupportedChannelCount) {
		t.Fatalf("expected ErrUnsupportedChannelCount, got %v", err)
	}
	if n := len(drv.Streams()); n != 0 {
		t.Fatalf("expected no stream opened, got %d", n)
	}
}

func TestOpenUsesDeviceLatencyUnlessOverridden(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)
	host.ListInputDevices()

	s, err := host.Open(0, defaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	cfg := defaultConfig()
	cfg.Latency = 50 * time.Millisecond
	s2, err := host.Open(0, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s2.Close()

	streams := drv.Streams()
	if got := streams[0].Params.Latency; got != 10*time.Millisecond {
		t.Fatalf("expected device default latency, got %v", got)
	}
	if got := streams[1].Params.Latency; got != 50*time.Millisecond {
		t.Fatalf("expected overridden latency, got %v", got)
	}
	if s.State() != audio.StateOpen {
		t.Fatalf("expected open state, got %s", s.State())
	}
}

func TestOpenDriverFailure(t *testing.T) {
	drv := micDriver()
	drv.OpenErr = errors.New("device busy")
	host := newHost(t, drv)
	host.ListInputDevices()

	if _, err := host.Open(0, defaultConfig()); !errors.Is(err, audio.ErrStreamOpen) {
		t.Fatalf("expected ErrStreamOpen, got %v", err)
	}
}

func TestOpenThenCloseWithoutStart(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)
	host.ListInputDevices()

	s, err := host.Open(0, defaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rec, err := s.Recording()
	if err != nil {
		t.Fatalf("recording: %v", err)
	}
	if len(rec.Samples) != 0 {
		t.Fatalf("expected empty buffer, got %d samples", len(rec.Samples))
	}
	if s.State() != audio.StateClosed {
		t.Fatalf("expected closed state, got %s", s.State())
	}
}

func TestThreeBlockCapture(t *testing.T) {
	drv := micDriver()
	drv.Blocks = [][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}
	host := newHost(t, drv)
	host.ListInputDevices()

	s, err := host.Open(0, defaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != audio.StateRunning {
		t.Fatalf("expected running, got %s", s.State())
	}

	<-drv.Streams()[0].Delivered()

	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rec, err := s.Recording()
	if err != nil {
		t.Fatalf("recording: %v", err)
	}
	want := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !reflect.DeepEqual(rec.Samples, want) {
		t.Fatalf("expected %v, got %v", want, rec.Samples)
	}
	if rec.SampleRate != 16000 || rec.Channels != 1 {
		t.Fatalf("unexpected format: %d Hz, %d ch", rec.SampleRate, rec.Channels)
	}
}

func TestBlockSizesAccumulate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Channels = 2

	blocks := [][]int16{
		nil,
		{},
		{1, 1},
		{1, 2, 3, 4, 5, 6, 7, 8},
		{9},          // partial frame, dropped
		{1, 2, 3, 4}, // two frames
	}

	drv := micDriver()
	drv.Blocks = blocks
	host := newHost(t, drv)
	host.ListInputDevices()

	s, err := host.Open(0, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-drv.Streams()[0].Delivered()
	s.Stop()
	s.Close()

	rec, _ := s.Recording()
	if len(rec.Samples) != 14 {
		t.Fatalf("expected 14 samples, got %d", len(rec.Samples))
	}
	if len(rec.Samples)%cfg.Channels != 0 {
		t.Fatalf("length %d not a multiple of %d", len(rec.Samples), cfg.Channels)
	}
	if rec.Dropped != 1 {
		t.Fatalf("expected 1 dropped block, got %d", rec.Dropped)
	}
	if rec.Frames() != 7 {
		t.Fatalf("expected 7 frames, got %d", rec.Frames())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	drv := micDriver()
	drv.Blocks = [][]int16{{1, 2, 3, 4}}
	host := newHost(t, drv)
	host.ListInputDevices()

	s, _ := host.Open(0, defaultConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	stream := drv.Streams()[0]
	<-stream.Delivered()

	if err := s.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	calls := stream.Invocations()

	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if stream.Invocations() != calls {
		t.Fatalf("callback invoked again after stop: %d -> %d", calls, stream.Invocations())
	}
	if stream.Stops() != 1 {
		t.Fatalf("expected stream stopped once, got %d", stream.Stops())
	}
	s.Close()
}

func TestCallbackAfterStopDoesNotAppend(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)
	host.ListInputDevices()

	s, _ := host.Open(0, defaultConfig())
	s.Start()
	stream := drv.Streams()[0]

	if got := stream.Deliver([]int16{1, 2, 3, 4}); got != audio.Continue {
		t.Fatalf("expected Continue while running, got %v", got)
	}
	s.Stop()
	if got := stream.Deliver([]int16{5, 6, 7, 8}); got != audio.Complete {
		t.Fatalf("expected Complete after stop, got %v", got)
	}
	s.Close()

	rec, _ := s.Recording()
	if !reflect.DeepEqual(rec.Samples, []int16{1, 2, 3, 4}) {
		t.Fatalf("unexpected samples %v", rec.Samples)
	}
}

func TestStopDrainsConcurrentProducer(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)
	host.ListInputDevices()

	s, _ := host.Open(0, defaultConfig())
	s.Start()
	stream := drv.Streams()[0]

	var wg sync.WaitGroup
	wg.Add(1)
	accepted := 0
	go func() {
		defer wg.Done()
		block := []int16{1, 2, 3, 4}
		for stream.Deliver(block) == audio.Continue {
			accepted++
		}
	}()

	time.Sleep(5 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	wg.Wait()
	s.Close()

	rec, _ := s.Recording()
	if len(rec.Samples) != accepted*4 {
		t.Fatalf("expected %d samples, got %d", accepted*4, len(rec.Samples))
	}
}

func TestStartFailureLeavesSessionOpen(t *testing.T) {
	drv := micDriver()
	drv.StartErr = errors.New("device unplugged")
	host := newHost(t, drv)
	host.ListInputDevices()

	s, _ := host.Open(0, defaultConfig())
	if err := s.Start(); !errors.Is(err, audio.ErrStreamStart) {
		t.Fatalf("expected ErrStreamStart, got %v", err)
	}
	if s.State() != audio.StateOpen {
		t.Fatalf("expected open state after failed start, got %s", s.State())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("best-effort stop should not escalate: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStopAndCloseErrorsAreReported(t *testing.T) {
	drv := micDriver()
	drv.Blocks = [][]int16{{1, 2, 3, 4}}
	drv.StopErr = errors.New("stop timed out")
	drv.CloseErr = errors.New("handle leaked")
	host := newHost(t, drv)
	host.ListInputDevices()

	s, _ := host.Open(0, defaultConfig())
	s.Start()
	<-drv.Streams()[0].Delivered()

	if err := s.Stop(); !errors.Is(err, audio.ErrStreamStop) {
		t.Fatalf("expected ErrStreamStop, got %v", err)
	}
	if err := s.Close(); !errors.Is(err, audio.ErrStreamClose) {
		t.Fatalf("expected ErrStreamClose, got %v", err)
	}

	rec, err := s.Recording()
	if err != nil {
		t.Fatalf("recording should survive stream errors: %v", err)
	}
	if len(rec.Samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(rec.Samples))
	}
}

func TestRecordingUnavailableBeforeClose(t *testing.T) {
	drv := micDriver()
	host := newHost(t, drv)
	host.ListInputDevices()

	s, _ := host.Open(0, defaultConfig())
	defer s.Close()

	if _, err := s.Recording(); !errors.Is(err, audio.ErrSessionState) {
		t.Fatalf("expected ErrSessionState, got %v", err)
	}
	s.Start()
	if err := s.Start(); !errors.Is(err, audio.ErrSessionState) {
		t.Fatalf("expected ErrSessionState on double start, got %v", err)
	}
}
