package ports

import "github.com/aretw0/stepwise/pkg/domain"

// AudioHandle is the shared playback handle owned by whichever step is current.
// The engine calls it only from the goroutine driving the sequence loop; adapters
// that complete playback on their own goroutines must be safe for that.
type AudioHandle interface {
	// Play starts the clip and returns a channel closed when playback ends or is stopped.
	Play(clip domain.Clip) <-chan struct{}
	// Stop halts any current playback.
	Stop()
	IsPlaying() bool

	Pitch() float64
	SetPitch(pitch float64)
	Volume() float64
	SetVolume(volume float64)
}

// AudioFactory allocates the shared handle the first time a sequence begins.
type AudioFactory func() AudioHandle
