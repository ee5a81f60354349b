package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/petems/mic-recorder/internal/audio"
)

// consoleStatus prints recorder state changes for the user.
type consoleStatus struct {
	out io.Writer
}

func (c *consoleStatus) SetIdle() {}

func (c *consoleStatus) SetRecording() {
	fmt.Fprintln(c.out, "Recording... press Enter to stop.")
}

func (c *consoleStatus) SetProcessing() {
	fmt.Fprintln(c.out, "Stopping...")
}

func (c *consoleStatus) SetError() {}

// promptDevice reads a device index from in. Whether the index is usable is
// decided when the session opens.
func promptDevice(in *bufio.Reader, out io.Writer) (int, error) {
	fmt.Fprint(out, "Enter the index of the input device to use: ")
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("read device index: %w", err)
	}
	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", audio.ErrInvalidDeviceIndex, strings.TrimSpace(line))
	}
	return index, nil
}
