package app

import (
	"context"
	"fmt"

	"github.com/petems/mic-recorder/internal/audio"
	"github.com/petems/mic-recorder/internal/report"
	"github.com/petems/mic-recorder/internal/wavfile"
	"github.com/rs/zerolog"
)

// StatusUpdater is an interface for updating status (e.g., console prompts)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetProcessing()
	SetError()
}

// Uploader archives a written recording and returns where it went.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type Config struct {
	Capture       audio.CaptureConfig
	OutputPath    string
	Uploader      Uploader // Optional - can be nil
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// Result describes one recording pass.
type Result struct {
	Device    audio.Device
	Recording *audio.Recording
	Summary   report.Summary
	// Path is set when the waveform file was written.
	Path      string
	UploadKey string
	// StreamErrs holds stop and close failures; they do not abort the pass.
	StreamErrs []error
	UploadErr  error
}

// Recorder runs a capture session from open to written file.
type Recorder struct {
	capture  audio.CaptureConfig
	output   string
	uploader Uploader
	log      zerolog.Logger
	status   StatusUpdater
}

func New(cfg Config) *Recorder {
	return &Recorder{
		capture:  cfg.Capture,
		output:   cfg.OutputPath,
		uploader: cfg.Uploader,
		log:      cfg.Logger,
		status:   cfg.StatusUpdater,
	}
}

// Record captures from the device at index until stop is closed or ctx is
// done, then writes the waveform file if anything was captured. Open and
// start failures are returned before any audio is captured; stop and close
// failures are collected in the result and the pass continues.
func (r *Recorder) Record(ctx context.Context, host *audio.Host, index int, stop <-chan struct{}) (*Result, error) {
	session, err := host.Open(index, r.capture)
	if err != nil {
		r.setError()
		return nil, err
	}

	res := &Result{Device: session.Device()}

	if err := session.Start(); err != nil {
		if cerr := session.Close(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("Close after failed start")
		}
		r.setError()
		return nil, err
	}

	if r.status != nil {
		r.status.SetRecording()
	}

	select {
	case <-stop:
	case <-ctx.Done():
	}

	if r.status != nil {
		r.status.SetProcessing()
	}

	if err := session.Stop(); err != nil {
		r.log.Error().Err(err).Msg("Stream stop failed")
		res.StreamErrs = append(res.StreamErrs, err)
	}
	if err := session.Close(); err != nil {
		r.log.Error().Err(err).Msg("Stream close failed")
		res.StreamErrs = append(res.StreamErrs, err)
	}

	rec, err := session.Recording()
	if err != nil {
		r.setError()
		return res, fmt.Errorf("collect recording: %w", err)
	}
	res.Recording = rec
	res.Summary = report.Summarize(rec.Samples)

	r.log.Info().
		Int("samples", len(rec.Samples)).
		Int("frames", rec.Frames()).
		Uint64("dropped_blocks", rec.Dropped).
		Msg("Recording finished")

	if res.Summary.Empty {
		r.log.Info().Msg("No audio captured, nothing to write")
		if r.status != nil {
			r.status.SetIdle()
		}
		return res, nil
	}

	if err := wavfile.Write(r.output, rec.Samples, rec.SampleRate, rec.Channels); err != nil {
		r.log.Error().Err(err).Str("path", r.output).Msg("Failed to save waveform")
		r.setError()
		return res, err
	}
	res.Path = r.output
	r.log.Info().Str("path", r.output).Msg("Audio saved")

	if r.uploader != nil {
		key, err := r.uploader.Upload(ctx, r.output)
		if err != nil {
			r.log.Error().Err(err).Msg("Upload failed")
			res.UploadErr = err
		} else {
			res.UploadKey = key
			r.log.Info().Str("key", key).Msg("Uploaded")
		}
	}

	if r.status != nil {
		r.status.SetIdle()
	}
	return res, nil
}

func (r *Recorder) setError() {
	if r.status != nil {
		r.status.SetError()
	}
}
