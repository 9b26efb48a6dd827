package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	playing string
	stops   int
}

func (p *fakePlayer) Start(ref string) error {
	p.playing = ref
	return nil
}

func (p *fakePlayer) Stop() error {
	p.stops++
	return nil
}

func TestPlaybackLifecycle(t *testing.T) {
	player := &fakePlayer{}
	p := NewPlayback(player)

	assert.Equal(t, PlaybackIdle, p.State())

	require.NoError(t, p.Play("https://cdn.example.com/audio/a.m4a"))
	assert.Equal(t, PlaybackPlaying, p.State())
	assert.Error(t, p.Play("https://cdn.example.com/audio/b.m4a"))

	p.Finish()
	assert.Equal(t, PlaybackIdle, p.State())

	// stop while idle is a no-op
	require.NoError(t, p.Stop())
	assert.Zero(t, player.stops)

	require.NoError(t, p.Play("https://cdn.example.com/audio/b.m4a"))
	require.NoError(t, p.Stop())
	assert.Equal(t, 1, player.stops)
	assert.Equal(t, PlaybackIdle, p.State())
}
