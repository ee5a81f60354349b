package audio

// buffer is the append-only capture buffer. Its length is always a
// multiple of channels. It is written only from the delivery callback and
// read only after the session has quiesced, so it carries no lock.
type buffer struct {
	samples  []int16
	channels int
}

func newBuffer(channels, reserve int) *buffer {
	if reserve < 0 {
		reserve = 0
	}
	// Round the reservation down to whole frames.
	reserve -= reserve % channels
	return &buffer{
		samples:  make([]int16, 0, reserve),
		channels: channels,
	}
}

// append copies block onto the end of the buffer. Blocks that do not hold
// whole frames are rejected so the frame invariant holds.
func (b *buffer) append(block []int16) bool {
	if len(block)%b.channels != 0 {
		return false
	}
	need := len(b.samples) + len(block)
	if need > cap(b.samples) {
		b.grow(need)
	}
	b.samples = append(b.samples, block...)
	return true
}

// grow doubles capacity until need fits.
func (b *buffer) grow(need int) {
	newCap := cap(b.samples)
	if newCap == 0 {
		newCap = 4096
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]int16, len(b.samples), newCap)
	copy(grown, b.samples)
	b.samples = grown
}

func (b *buffer) len() int { return len(b.samples) }
