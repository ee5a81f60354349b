package audio

// deliver is the delivery callback handed to the driver. It runs on the
// subsystem's real-time thread: it never blocks, logs or returns an error.
// Any fault drops the block.
func (s *Session) deliver(block []int16) (next Continuation) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	if !s.lent.Load() {
		return Complete
	}

	defer func() {
		if r := recover(); r != nil {
			s.dropped.Add(1)
			next = Continue
		}
	}()

	// A nil or empty block carries nothing; the subsystem may still hand
	// one over at stream boundaries.
	if len(block) == 0 {
		return Continue
	}
	if !s.buf.append(block) {
		s.dropped.Add(1)
	}
	return Continue
}
