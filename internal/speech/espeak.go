package speech

import (
	"bufio"
	"bytes"
	"context"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const (
	espeakDefaultRate   = 200
	espeakDefaultVolume = 1.0
)

// EspeakBackend speaks through the espeak-ng (or legacy espeak) command line.
type EspeakBackend struct {
	binary   string
	run      runFunc
	lookPath lookPathFunc
}

// NewEspeakBackend creates an espeak backend. An empty binary means
// espeak-ng, falling back to espeak.
func NewEspeakBackend(binary string) *EspeakBackend {
	return &EspeakBackend{binary: binary, run: runCommand, lookPath: exec.LookPath}
}

func (b *EspeakBackend) Name() string { return "espeak" }

func (b *EspeakBackend) Init(_ context.Context) (Properties, error) {
	if _, err := b.resolve(); err != nil {
		return Properties{}, err
	}
	return Properties{Rate: espeakDefaultRate, Volume: espeakDefaultVolume}, nil
}

func (b *EspeakBackend) Voices(ctx context.Context) ([]Voice, error) {
	bin, err := b.resolve()
	if err != nil {
		return nil, err
	}
	out, err := b.run(ctx, "", bin, "--voices")
	if err != nil {
		return nil, err
	}
	return parseEspeakVoices(out), nil
}

// Play passes text on stdin so it is never parsed as a flag.
func (b *EspeakBackend) Play(ctx context.Context, text string, props Properties) error {
	bin, err := b.resolve()
	if err != nil {
		return err
	}
	_, err = b.run(ctx, text, bin, espeakArgs(props)...)
	return err
}

func (b *EspeakBackend) resolve() (string, error) {
	if b.binary != "" {
		return resolveBinary(b.lookPath, b.binary)
	}
	return resolveBinary(b.lookPath, "espeak-ng", "espeak")
}

// espeakArgs maps engine properties to espeak flags. Volume 1.0 is
// amplitude 100.
func espeakArgs(props Properties) []string {
	args := []string{
		"-s", strconv.Itoa(props.Rate),
		"-a", strconv.Itoa(int(math.Round(props.Volume * 100))),
	}
	if props.Voice != "" {
		args = append(args, "-v", props.Voice)
	}
	return args
}

// parseEspeakVoices parses `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		langs := []string{fields[1]}
		for _, other := range fields[5:] {
			other = strings.Trim(other, "()")
			if other == "" {
				continue
			}
			if _, err := strconv.Atoi(other); err == nil {
				continue // priority
			}
			langs = append(langs, other)
		}
		voices = append(voices, Voice{
			ID:        fields[1],
			Name:      strings.ReplaceAll(fields[3], "_", " "),
			Languages: langs,
		})
	}
	return voices
}
