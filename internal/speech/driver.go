package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
)

// Driver names accepted by NewBackend.
const (
	DriverAuto   = "auto"
	DriverEspeak = "espeak"
	DriverSay    = "say"
	DriverLog    = "log"
)

// NewBackend returns the backend for driver. With DriverAuto it prefers
// say on macOS, then espeak, and falls back to logging when neither is
// installed. binary only applies to a named driver; auto detection always
// looks up the standard command names.
func NewBackend(driver, binary string, logger *log.Logger) (Backend, error) {
	switch driver {
	case DriverEspeak:
		return NewEspeakBackend(binary), nil
	case DriverSay:
		return NewSayBackend(binary), nil
	case DriverLog:
		return NewLogBackend(logger), nil
	case "", DriverAuto:
		if binary != "" {
			logger.Printf("speech: ignoring binary override %q in auto mode, set a driver to use it", binary)
		}
		return autoBackend(logger, runtime.GOOS, exec.LookPath), nil
	default:
		return nil, fmt.Errorf("unknown speech driver %q", driver)
	}
}

func autoBackend(logger *log.Logger, goos string, lookPath lookPathFunc) Backend {
	espeak := NewEspeakBackend("")
	espeak.lookPath = lookPath
	candidates := []Backend{espeak}
	if goos == "darwin" {
		say := NewSayBackend("")
		say.lookPath = lookPath
		candidates = append([]Backend{say}, candidates...)
	}
	for _, b := range candidates {
		_, err := b.Init(context.Background())
		if err == nil {
			return b
		}
		if !errors.Is(err, ErrBackendUnavailable) {
			logger.Printf("speech: %s backend init failed: %v", b.Name(), err)
		}
	}
	logger.Printf("speech: no synthesizer found, messages will be logged only")
	return NewLogBackend(logger)
}
