package speech

import (
	"context"
	"log"
)

// LogBackend writes utterances to a logger instead of the audio device.
// Used on hosts without a synthesizer so the service still runs.
type LogBackend struct {
	logger *log.Logger
}

func NewLogBackend(logger *log.Logger) *LogBackend {
	return &LogBackend{logger: logger}
}

func (b *LogBackend) Name() string { return "log" }

func (b *LogBackend) Init(_ context.Context) (Properties, error) {
	return Properties{Rate: espeakDefaultRate, Volume: espeakDefaultVolume}, nil
}

func (b *LogBackend) Voices(_ context.Context) ([]Voice, error) {
	return nil, nil
}

func (b *LogBackend) Play(_ context.Context, text string, props Properties) error {
	b.logger.Printf("speech: (rate=%d volume=%.2f voice=%q) %q", props.Rate, props.Volume, props.Voice, text)
	return nil
}
