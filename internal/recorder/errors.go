package recorder

import (
	"errors"
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
)

var (
	ErrAlreadyRecording = errors.New("recorder is already recording")
	ErrNotRecording     = errors.New("recorder is not recording")
	ErrSessionCancelled = errors.New("session stopped before access was granted")
	ErrNilSource        = errors.New("recorder needs an audio source")

	// Matches audiodevice.ErrAccessDenied under errors.Is as well.
	ErrAccessDenied = fmt.Errorf("recorder: %w", audiodevice.ErrAccessDenied)
)
