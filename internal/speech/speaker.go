package speech

import (
	"context"
	"fmt"
	"strings"
)

const (
	// RateDelta is subtracted from the engine's default rate for a slower, deeper delivery.
	RateDelta = 50
	// VolumeBoost is added to the engine's default volume. Not capped.
	VolumeBoost = 0.5

	preferredVoiceKeyword = "male"
)

// Speaker speaks messages through a fresh Engine per call.
type Speaker struct {
	backend Backend
}

// NewSpeaker creates a Speaker backed by b.
func NewSpeaker(b Backend) *Speaker {
	return &Speaker{backend: b}
}

// Backend returns the backend this speaker drives.
func (s *Speaker) Backend() Backend {
	return s.backend
}

// Speak initializes an engine, tunes rate, volume and voice, then speaks
// message and blocks until playback completes.
func (s *Speaker) Speak(ctx context.Context, message string) error {
	engine, err := NewEngine(ctx, s.backend)
	if err != nil {
		return err
	}

	engine.SetRate(engine.Rate() - RateDelta)
	engine.SetVolume(engine.Volume() + VolumeBoost)

	voices, err := engine.Voices(ctx)
	if err != nil {
		return fmt.Errorf("list voices: %w", err)
	}
	if v, ok := SelectVoice(voices); ok {
		engine.SetVoice(v.ID)
	}

	engine.Say(message)
	return engine.RunAndWait(ctx)
}

// SelectVoice returns the first voice whose name contains "male",
// ignoring case. Note that "Female" matches as well.
func SelectVoice(voices []Voice) (Voice, bool) {
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), preferredVoiceKeyword) {
			return v, true
		}
	}
	return Voice{}, false
}
