package main

import (
	"fmt"

	"github.com/petems/mic-recorder/internal/report"
	"github.com/petems/mic-recorder/internal/wavfile"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Show the format and sample statistics of a WAV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wave, err := wavfile.Read(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File:        %s\n", args[0])
		fmt.Fprintf(out, "Sample rate: %d Hz\n", wave.SampleRate)
		fmt.Fprintf(out, "Channels:    %d\n", wave.Channels)
		fmt.Fprintf(out, "Bit depth:   %d\n", wave.BitDepth)
		if wave.Channels > 0 && wave.SampleRate > 0 {
			frames := len(wave.Samples) / wave.Channels
			fmt.Fprintf(out, "Duration:    %.2fs\n", float64(frames)/float64(wave.SampleRate))
		}
		fmt.Fprintln(out, report.Summarize(wave.Samples))
		return nil
	},
}
