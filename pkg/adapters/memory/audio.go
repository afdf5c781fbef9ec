package memory

import (
	"sync"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Audio is a simulated audio handle. Playback lasts clip.Duration of wall time
// (zero-length clips finish immediately) and can be ended early with Finish or Stop.
// Safe for concurrent use.
type Audio struct {
	mu      sync.Mutex
	pitch   float64
	volume  float64
	current *playback
	played  []string
	onPlay  func(domain.Clip)
}

type playback struct {
	clip  domain.Clip
	done  chan struct{}
	once  sync.Once
	timer *time.Timer
}

func (p *playback) finish() {
	p.once.Do(func() {
		if p.timer != nil {
			p.timer.Stop()
		}
		close(p.done)
	})
}

// AudioOption configures the simulated handle.
type AudioOption func(*Audio)

// WithPlayCallback is invoked (outside the handle's lock) every time a clip starts.
func WithPlayCallback(fn func(domain.Clip)) AudioOption {
	return func(a *Audio) {
		a.onPlay = fn
	}
}

// NewAudio creates a handle with pitch and volume 1.
func NewAudio(opts ...AudioOption) *Audio {
	a := &Audio{pitch: 1, volume: 1}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Play stops any current playback and starts clip.
func (a *Audio) Play(clip domain.Clip) <-chan struct{} {
	p := &playback{clip: clip, done: make(chan struct{})}

	a.mu.Lock()
	if a.current != nil {
		a.current.finish()
	}
	a.current = p
	a.played = append(a.played, clip.Name)
	if clip.Duration > 0 {
		p.timer = time.AfterFunc(clip.Duration, func() { a.end(p) })
	}
	onPlay := a.onPlay
	a.mu.Unlock()

	if clip.Duration <= 0 {
		a.end(p)
	}
	if onPlay != nil {
		onPlay(clip)
	}
	return p.done
}

func (a *Audio) end(p *playback) {
	a.mu.Lock()
	if a.current == p {
		a.current = nil
	}
	a.mu.Unlock()
	p.finish()
}

// Stop halts the current playback, closing its done channel.
func (a *Audio) Stop() {
	a.mu.Lock()
	p := a.current
	a.current = nil
	a.mu.Unlock()
	if p != nil {
		p.finish()
	}
}

// Finish ends the current playback as if the clip had reached its end.
func (a *Audio) Finish() {
	a.Stop()
}

func (a *Audio) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

// Current returns the clip being played, if any.
func (a *Audio) Current() (domain.Clip, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return domain.Clip{}, false
	}
	return a.current.clip, true
}

// Played returns the names of every clip started so far, in order.
func (a *Audio) Played() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.played...)
}

func (a *Audio) Pitch() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pitch
}

func (a *Audio) SetPitch(pitch float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pitch = pitch
}

func (a *Audio) Volume() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

func (a *Audio) SetVolume(volume float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = volume
}
