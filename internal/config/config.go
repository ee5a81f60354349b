package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MIC_RECORDER_AUDIO_SAMPLE_RATE.
const EnvPrefix = "MIC_RECORDER"

// DevicePrompt as DeviceIndex means the user picks a device interactively.
const DevicePrompt = -1

type Config struct {
	LogLevel string       `json:"log_level" mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	Audio    AudioConfig  `json:"audio" mapstructure:"audio"`
	Output   OutputConfig `json:"output" mapstructure:"output"`
	Upload   UploadConfig `json:"upload" mapstructure:"upload"`

	path string
}

type AudioConfig struct {
	DeviceIndex        int           `json:"device_index" mapstructure:"device_index" validate:"gte=-1"`
	SampleRate         int           `json:"sample_rate" mapstructure:"sample_rate" validate:"gte=8000,lte=192000"`
	Channels           int           `json:"channels" mapstructure:"channels" validate:"gte=1,lte=32"`
	FramesPerBuffer    int           `json:"frames_per_buffer" mapstructure:"frames_per_buffer" validate:"gte=16,lte=8192"`
	Latency            time.Duration `json:"latency" mapstructure:"latency" validate:"gte=0"`
	PreallocateSeconds int           `json:"preallocate_seconds" mapstructure:"preallocate_seconds" validate:"gte=0,lte=3600"`
}

type OutputConfig struct {
	Path string `json:"path" mapstructure:"path" validate:"required"`
}

// UploadConfig points at S3-compatible storage. Uploading is skipped
// unless IsConfigured.
type UploadConfig struct {
	Endpoint        string `json:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`
	Region          string `json:"region" mapstructure:"region"`
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Prefix          string `json:"prefix" mapstructure:"prefix"`
	AccessKeyID     string `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" mapstructure:"secret_access_key"`
}

// IsConfigured reports whether enough is set to attempt an upload.
func (u UploadConfig) IsConfigured() bool {
	return u.Bucket != "" && u.AccessKeyID != "" && u.SecretAccessKey != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceIndex:        DevicePrompt,
			SampleRate:         16000,
			Channels:           1,
			FramesPerBuffer:    512,
			Latency:            0, // device default
			PreallocateSeconds: 30,
		},
		Output: OutputConfig{
			Path: "recording.wav",
		},
		Upload: UploadConfig{
			Region: "auto",
		},
	}
}

// Load reads the config from path, or from the platform config path when
// path is empty, and applies environment overrides. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = configPath()
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("audio.device_index", d.Audio.DeviceIndex)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.frames_per_buffer", d.Audio.FramesPerBuffer)
	v.SetDefault("audio.latency", d.Audio.Latency)
	v.SetDefault("audio.preallocate_seconds", d.Audio.PreallocateSeconds)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("upload.endpoint", d.Upload.Endpoint)
	v.SetDefault("upload.region", d.Upload.Region)
	v.SetDefault("upload.bucket", d.Upload.Bucket)
	v.SetDefault("upload.prefix", d.Upload.Prefix)
	v.SetDefault("upload.access_key_id", d.Upload.AccessKeyID)
	v.SetDefault("upload.secret_access_key", d.Upload.SecretAccessKey)
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "mic-recorder", "config.json")
}
