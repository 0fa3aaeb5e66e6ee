package speech

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned by Backend.Init when the underlying
// synthesizer cannot be found on this host.
var ErrBackendUnavailable = errors.New("speech backend unavailable")

// Voice is one voice offered by a backend.
type Voice struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages,omitempty"`
}

// Properties are the tunable engine settings applied to every utterance.
type Properties struct {
	Rate   int     // words per minute
	Volume float64 // 1.0 is the backend's nominal level
	Voice  string  // backend voice ID, empty for the backend default
}

// Backend drives a concrete synthesizer (espeak, say, ...).
type Backend interface {
	// Name identifies the backend in logs and events.
	Name() string

	// Init checks the synthesizer is usable and returns its default properties.
	Init(ctx context.Context) (Properties, error)

	// Voices lists the voices the synthesizer offers.
	Voices(ctx context.Context) ([]Voice, error)

	// Play speaks text with the given properties and blocks until playback ends.
	Play(ctx context.Context, text string, props Properties) error
}

// Engine is a single speech engine instance. It is not safe for concurrent
// use; create one per speech task.
type Engine struct {
	backend Backend
	props   Properties
	queue   []string
}

// NewEngine initializes an engine on top of b.
func NewEngine(ctx context.Context, b Backend) (*Engine, error) {
	props, err := b.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init %s engine: %w", b.Name(), err)
	}
	return &Engine{backend: b, props: props}, nil
}

func (e *Engine) Rate() int { return e.props.Rate }
func (e *Engine) SetRate(rate int) { e.props.Rate = rate }
func (e *Engine) Volume() float64 { return e.props.Volume }
func (e *Engine) SetVolume(v float64) { e.props.Volume = v }
func (e *Engine) Voice() string { return e.props.Voice }
func (e *Engine) SetVoice(id string) { e.props.Voice = id }
func (e *Engine) Properties() Properties { return e.props }

// Voices lists the voices available to this engine.
func (e *Engine) Voices(ctx context.Context) ([]Voice, error) {
	return e.backend.Voices(ctx)
}

// Say queues text for speech. Nothing is spoken until RunAndWait.
func (e *Engine) Say(text string) {
	e.queue = append(e.queue, text)
}

// RunAndWait speaks every queued utterance in order and blocks until the
// queue drains. The queue is cleared even if playback fails.
func (e *Engine) RunAndWait(ctx context.Context) error {
	queue := e.queue
	e.queue = nil
	for _, text := range queue {
		if err := e.backend.Play(ctx, text, e.props); err != nil {
			return fmt.Errorf("%s playback: %w", e.backend.Name(), err)
		}
	}
	return nil
}
