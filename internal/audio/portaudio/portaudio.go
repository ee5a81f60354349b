// Package portaudio implements audio.Driver on top of PortAudio.
package portaudio

import (
	"fmt"
	"sync"
	"sync/atomic"

	pa "github.com/gordonklaus/portaudio"
	"github.com/petems/mic-recorder/internal/audio"
)

type driver struct {
	mu      sync.Mutex
	devices map[int]*pa.DeviceInfo
}

// New returns a PortAudio-backed driver. Nothing is initialized until
// audio.Acquire calls Initialize.
func New() audio.Driver {
	return &driver{}
}

func (d *driver) Initialize() error {
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

func (d *driver) Terminate() error {
	return pa.Terminate()
}

func (d *driver) Devices() ([]audio.Device, error) {
	infos, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.devices = make(map[int]*pa.DeviceInfo, len(infos))
	result := make([]audio.Device, 0, len(infos))
	// PortAudio enumerates devices by index, so the position is the index.
	for i, info := range infos {
		if info == nil {
			continue
		}
		d.devices[i] = info
		result = append(result, audio.Device{
			Index:                  i,
			Name:                   info.Name,
			MaxInputChannels:       info.MaxInputChannels,
			DefaultLowInputLatency: info.DefaultLowInputLatency,
			DefaultSampleRate:      info.DefaultSampleRate,
		})
	}
	return result, nil
}

func (d *driver) OpenInputStream(params audio.StreamParams, deliver audio.DeliverFunc) (audio.Stream, error) {
	d.mu.Lock()
	info, ok := d.devices[params.Device.Index]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("device %d not enumerated", params.Device.Index)
	}

	s := &stream{deliver: deliver}

	// PortAudio's Go callback cannot return paComplete, so once deliver
	// asks to finish the remaining blocks are ignored here.
	stream, err := pa.OpenStream(pa.StreamParameters{
		Input: pa.StreamDeviceParameters{
			Device:   info,
			Channels: params.Channels,
			Latency:  params.Latency,
		},
		SampleRate:      params.SampleRate,
		FramesPerBuffer: params.FramesPerBuffer,
		Flags:           pa.ClipOff,
	}, s.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	s.stream = stream
	return s, nil
}

type stream struct {
	stream  *pa.Stream
	deliver audio.DeliverFunc
	done    atomic.Bool
}

func (s *stream) callback(in []int16) {
	if s.done.Load() {
		return
	}
	if s.deliver(in) == audio.Complete {
		s.done.Store(true)
	}
}

func (s *stream) Start() error {
	s.done.Store(false)
	return s.stream.Start()
}

// Stop waits for pending buffers to be processed; Pa_StopStream does not
// return while a callback is running.
func (s *stream) Stop() error {
	return s.stream.Stop()
}

func (s *stream) Close() error {
	return s.stream.Close()
}
