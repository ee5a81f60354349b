package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/petems/mic-recorder/internal/app"
	"github.com/petems/mic-recorder/internal/audio"
	"github.com/petems/mic-recorder/internal/audio/portaudio"
	"github.com/petems/mic-recorder/internal/config"
	"github.com/petems/mic-recorder/internal/permissions"
	"github.com/petems/mic-recorder/internal/upload"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from an input device until Enter or Ctrl+C",
	Long: `Lists the input devices, asks which one to use (unless --device or
audio.device_index is set), records until Enter or Ctrl+C, then writes the
WAV file and prints sample statistics.`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().IntP("device", "d", config.DevicePrompt, "input device index (-1 prompts)")
	recordCmd.Flags().StringP("output", "o", "", "output WAV file (overrides config)")
	recordCmd.Flags().Int("rate", 0, "sample rate in Hz (overrides config)")
	recordCmd.Flags().Int("channels", 0, "channel count (overrides config)")
	recordCmd.Flags().Int("frames", 0, "frames per delivery block (overrides config)")
	recordCmd.Flags().Duration("latency", 0, "suggested input latency, 0 uses the device default (overrides config)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	if err := applyRecordFlags(cmd, cfg); err != nil {
		return err
	}

	if err := permissions.EnsureMicrophone(); err != nil {
		return err
	}

	host, err := audio.Acquire(portaudio.New(), log)
	if err != nil {
		return err
	}
	defer host.Release()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	devices, err := host.ListInputDevices()
	if err != nil {
		return err
	}
	printDevices(out, devices)

	index := cfg.Audio.DeviceIndex
	if index == config.DevicePrompt {
		index, err = promptDevice(in, out)
		if err != nil {
			return err
		}
	}

	recCfg := app.Config{
		Capture: audio.CaptureConfig{
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.Channels,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			Latency:         cfg.Audio.Latency,
			Reserve:         cfg.Audio.PreallocateSeconds * cfg.Audio.SampleRate * cfg.Audio.Channels,
		},
		OutputPath:    cfg.Output.Path,
		Logger:        log,
		StatusUpdater: &consoleStatus{out: out},
	}
	if cfg.Upload.IsConfigured() {
		uploader, err := upload.New(cfg.Upload)
		if err != nil {
			return err
		}
		recCfg.Uploader = uploader
	}

	if d, ok := findDevice(devices, index); ok {
		fmt.Fprintf(out, "Using input device: %s\n", d.Name)
		fmt.Fprintf(out, "Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := make(chan struct{})
	var once sync.Once
	go func() {
		// Any line, including an empty one, stops the recording.
		in.ReadString('\n')
		once.Do(func() { close(stop) })
	}()
	go func() {
		<-ctx.Done()
		once.Do(func() { close(stop) })
	}()

	res, err := app.New(recCfg).Record(context.Background(), host, index, stop)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Recording finished.")
	if res.Recording != nil {
		fmt.Fprintf(out, "Captured buffer size: %d samples\n", len(res.Recording.Samples))
	}
	if res.Path != "" {
		fmt.Fprintf(out, "Audio saved to: %s\n", res.Path)
	}
	if res.UploadKey != "" {
		fmt.Fprintf(out, "Uploaded as: %s\n", res.UploadKey)
	}
	fmt.Fprintln(out, res.Summary)
	return nil
}

func applyRecordFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("device") {
		c.Audio.DeviceIndex, _ = flags.GetInt("device")
	}
	if flags.Changed("output") {
		c.Output.Path, _ = flags.GetString("output")
	}
	if flags.Changed("rate") {
		c.Audio.SampleRate, _ = flags.GetInt("rate")
	}
	if flags.Changed("channels") {
		c.Audio.Channels, _ = flags.GetInt("channels")
	}
	if flags.Changed("frames") {
		c.Audio.FramesPerBuffer, _ = flags.GetInt("frames")
	}
	if flags.Changed("latency") {
		c.Audio.Latency, _ = flags.GetDuration("latency")
	}
	return c.Validate()
}

func findDevice(devices []audio.Device, index int) (audio.Device, bool) {
	for _, d := range devices {
		if d.Index == index {
			return d, true
		}
	}
	return audio.Device{}, false
}
