package main

import (
	"fmt"
	"io"

	"github.com/petems/mic-recorder/internal/audio"
	"github.com/petems/mic-recorder/internal/audio/portaudio"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := audio.Acquire(portaudio.New(), log)
		if err != nil {
			return err
		}
		defer host.Release()

		devices, err := host.ListInputDevices()
		if err != nil {
			return err
		}
		printDevices(cmd.OutOrStdout(), devices)
		return nil
	},
}

func printDevices(w io.Writer, devices []audio.Device) {
	fmt.Fprintln(w, "Available input devices:")
	for _, d := range devices {
		fmt.Fprintf(w, "  [%d] %s (%d ch, %.0f Hz, %s latency)\n",
			d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate, d.DefaultLowInputLatency)
	}
}
