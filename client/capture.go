package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CaptureState is the recording lifecycle state
type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CaptureRecording
	CaptureStopped
)

// CaptureSettings configure the recorder: mono, low sample rate,
// compressed container.
type CaptureSettings struct {
	SampleRate int
	Channels   int
	BitRate    int
}

// DefaultCaptureSettings match the voice-note profile
var DefaultCaptureSettings = CaptureSettings{
	SampleRate: 12000,
	Channels:   1,
	BitRate:    24000,
}

// Recorder is the local capture resource: start writing to a file path,
// stop and finalize it.
type Recorder interface {
	Start(path string, settings CaptureSettings) error
	Stop() error
}

// Capture drives one recording through Idle → Recording → Stopped.
// Stopped is terminal: a new voice note uses a new Capture, which
// always records to a fresh temporary file. Not safe for concurrent
// use; the caller drives it from a single context.
type Capture struct {
	rec      Recorder
	settings CaptureSettings
	state    CaptureState
	path     string
}

// NewCapture creates a capture over the given recorder
func NewCapture(rec Recorder) *Capture {
	return &Capture{
		rec:      rec,
		settings: DefaultCaptureSettings,
	}
}

// State returns the current lifecycle state
func (c *Capture) State() CaptureState {
	return c.state
}

// Start begins recording to a fresh temporary file. If the recorder
// cannot be acquired the capture stays Idle and nothing is handed
// downstream. Starting while already recording is rejected.
func (c *Capture) Start() error {
	switch c.state {
	case CaptureRecording:
		return fmt.Errorf("capture already recording")
	case CaptureStopped:
		return fmt.Errorf("capture instance is finished")
	}

	path := filepath.Join(os.TempDir(), "voice-"+uuid.New().String()+".m4a")
	if err := c.rec.Start(path, c.settings); err != nil {
		return fmt.Errorf("failed to acquire recorder: %w", err)
	}

	c.path = path
	c.state = CaptureRecording
	return nil
}

// Stop finalizes the recording and returns the captured file's path for
// upload. Stopping while Idle is a no-op returning an empty path.
func (c *Capture) Stop() (string, error) {
	if c.state != CaptureRecording {
		return "", nil
	}

	c.state = CaptureStopped
	if err := c.rec.Stop(); err != nil {
		return "", fmt.Errorf("failed to finalize recording: %w", err)
	}
	return c.path, nil
}
