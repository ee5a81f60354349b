// Package report summarizes a finished capture.
package report

import (
	"fmt"
	"strings"
)

// PreviewLimit caps the number of samples kept in Summary.Preview.
const PreviewLimit = 100

// Summary describes a capture buffer. Min and Max are only meaningful when
// Empty is false.
type Summary struct {
	Count   int
	Min     int16
	Max     int16
	Preview []int16
	Empty   bool
}

// Summarize computes statistics over samples without modifying them.
func Summarize(samples []int16) Summary {
	if len(samples) == 0 {
		return Summary{Empty: true}
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	n := min(len(samples), PreviewLimit)
	preview := make([]int16, n)
	copy(preview, samples[:n])

	return Summary{
		Count:   len(samples),
		Min:     lo,
		Max:     hi,
		Preview: preview,
	}
}

// Truncated reports whether Preview omits samples.
func (s Summary) Truncated() bool {
	return s.Count > len(s.Preview)
}

func (s Summary) String() string {
	if s.Empty {
		return "no audio captured"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total samples: %d\n", s.Count)
	fmt.Fprintf(&b, "First %d samples:", len(s.Preview))
	for _, v := range s.Preview {
		fmt.Fprintf(&b, " %d", v)
	}
	if s.Truncated() {
		b.WriteString(" ...")
	}
	fmt.Fprintf(&b, "\nMin sample: %d\nMax sample: %d", s.Min, s.Max)
	return b.String()
}
