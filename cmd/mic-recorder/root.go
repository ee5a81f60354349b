package main

import (
	"fmt"
	"os"

	"github.com/petems/mic-recorder/internal/config"
	"github.com/petems/mic-recorder/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	cfgFile  string
	logLevel string
	log      zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mic-recorder",
	Short: "Record audio from an input device to a WAV file",
	Long: `mic-recorder captures live audio from a selected input device
through PortAudio and saves it as a 16-bit PCM WAV file.

Run 'mic-recorder record' to pick a device and start recording; press
Enter or Ctrl+C to stop.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       fmt.Sprintf("%s (%s)", Version, Commit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		log = logging.New(cfg.LogLevel)
		log.Debug().Str("config", cfg.Path()).Msg("Configuration loaded")
		return nil
	},
}

// Execute is the single report-and-exit point: every failure ends here
// after its command has released the audio subsystem.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir, mic-recorder/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(infoCmd)
}
