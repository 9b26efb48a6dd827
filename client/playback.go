package client

import "fmt"

// PlaybackState is the voice playback state
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackPlaying
)

// Player is the local playback resource
type Player interface {
	Start(ref string) error
	Stop() error
}

// Playback drives voice playback through Idle → Playing → Idle. It is
// independent of any Capture; the caller keeps recording and playback
// from running at once.
type Playback struct {
	player Player
	state  PlaybackState
}

// NewPlayback creates a playback machine over the given player
func NewPlayback(player Player) *Playback {
	return &Playback{player: player}
}

// State returns the current playback state
func (p *Playback) State() PlaybackState {
	return p.state
}

// Play starts playing the given reference. Rejected while already
// playing; a player failure leaves the machine Idle.
func (p *Playback) Play(ref string) error {
	if p.state == PlaybackPlaying {
		return fmt.Errorf("playback already active")
	}
	if err := p.player.Start(ref); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	p.state = PlaybackPlaying
	return nil
}

// Finish returns the machine to Idle when the player reports the end of
// the media
func (p *Playback) Finish() {
	p.state = PlaybackIdle
}

// Stop interrupts playback and returns to Idle
func (p *Playback) Stop() error {
	if p.state != PlaybackPlaying {
		return nil
	}
	p.state = PlaybackIdle
	if err := p.player.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}
