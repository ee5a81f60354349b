package permissions

import "errors"

// ErrMicrophoneDenied means audio capture is not permitted for this process.
var ErrMicrophoneDenied = errors.New("microphone permission not granted: System Settings → Privacy & Security → Microphone")
