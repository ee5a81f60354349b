// Package wavfile persists captured samples as 16-bit PCM WAV files and
// reads them back.
package wavfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const (
	bitDepth       = 16
	bytesPerSample = bitDepth / 8

	// wavFormatPCM is the WAVE_FORMAT_PCM format tag.
	wavFormatPCM = 1
)

// ErrShortWrite means the file on disk holds fewer samples than requested.
var ErrShortWrite = errors.New("short write")

// WriteError reports a failed Write. No file is left at Path when it is
// returned.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Write stores samples, interleaved by channel, as a 16-bit PCM WAV file
// at path. The file appears at path only once it has been fully written and
// verified; on failure nothing is left behind.
func Write(path string, samples []int16, sampleRate, channels int) (err error) {
	switch {
	case channels <= 0:
		return &WriteError{Path: path, Err: fmt.Errorf("invalid channel count %d", channels)}
	case sampleRate <= 0:
		return &WriteError{Path: path, Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	case len(samples) == 0:
		return &WriteError{Path: path, Err: errors.New("no samples to write")}
	case len(samples)%channels != 0:
		return &WriteError{Path: path, Err: fmt.Errorf("%d samples is not a whole number of %d-channel frames", len(samples), channels)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.partial")
	if err != nil {
		return &WriteError{Path: path, Err: errors.Wrap(err, "create temp file")}
	}
	tmpName := tmp.Name()

	closed := false
	defer func() {
		if !closed {
			tmp.Close()
		}
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	fail := func(cause error, msg string) error {
		return &WriteError{Path: path, Err: errors.Wrap(cause, msg)}
	}

	enc := wav.NewEncoder(tmp, sampleRate, bitDepth, channels, wavFormatPCM)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fail(err, "encode samples")
	}
	if err := enc.Close(); err != nil {
		return fail(err, "finalize header")
	}

	if err := verify(tmp, len(samples), sampleRate, channels); err != nil {
		return fail(err, "verify")
	}

	if err := tmp.Sync(); err != nil {
		return fail(err, "sync")
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fail(err, "close")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fail(err, "rename into place")
	}
	return nil
}

// verify re-reads the header of f and checks that the data chunk holds
// exactly want samples in the requested format.
func verify(f *os.File, want, sampleRate, channels int) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return errors.Wrap(err, "read back header")
	}
	if int(dec.NumChans) != channels || int(dec.SampleRate) != sampleRate || int(dec.BitDepth) != bitDepth {
		return fmt.Errorf("header mismatch: %d ch, %d Hz, %d bit", dec.NumChans, dec.SampleRate, dec.BitDepth)
	}
	if got := dec.PCMSize / bytesPerSample; got != want {
		return errors.Wrapf(ErrShortWrite, "wrote %d of %d samples", got, want)
	}
	return nil
}

// Waveform is a decoded WAV file.
type Waveform struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []int16
}

// Read decodes a 16-bit PCM WAV file.
func Read(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%q is not a valid wav file", path)
	}
	if dec.BitDepth != bitDepth {
		return nil, fmt.Errorf("%q: unsupported bit depth %d", path, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %q", path)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return &Waveform{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Samples:    samples,
	}, nil
}
