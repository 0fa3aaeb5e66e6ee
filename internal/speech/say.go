package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

const (
	sayDefaultRate   = 175
	sayDefaultVolume = 1.0
)

// SayBackend speaks through the macOS `say` command.
type SayBackend struct {
	binary   string
	run      runFunc
	lookPath lookPathFunc
}

func NewSayBackend(binary string) *SayBackend {
	if binary == "" {
		binary = "say"
	}
	return &SayBackend{binary: binary, run: runCommand, lookPath: exec.LookPath}
}

func (b *SayBackend) Name() string { return "say" }

func (b *SayBackend) Init(_ context.Context) (Properties, error) {
	if _, err := resolveBinary(b.lookPath, b.binary); err != nil {
		return Properties{}, err
	}
	return Properties{Rate: sayDefaultRate, Volume: sayDefaultVolume}, nil
}

func (b *SayBackend) Voices(ctx context.Context) ([]Voice, error) {
	bin, err := resolveBinary(b.lookPath, b.binary)
	if err != nil {
		return nil, err
	}
	out, err := b.run(ctx, "", bin, "-v", "?")
	if err != nil {
		return nil, err
	}
	return parseSayVoices(out), nil
}

// Play reads text from stdin. say has no volume flag, so volume is set
// with an embedded [[volm]] command; commands inside text are defused so
// a message cannot change its own rate or volume.
func (b *SayBackend) Play(ctx context.Context, text string, props Properties) error {
	bin, err := resolveBinary(b.lookPath, b.binary)
	if err != nil {
		return err
	}
	args := []string{"-r", strconv.Itoa(props.Rate)}
	if props.Voice != "" {
		args = append(args, "-v", props.Voice)
	}
	_, err = b.run(ctx, sayVolumePrefix(props.Volume)+defuseSayCommands(text), bin, args...)
	return err
}

// defuseSayCommands breaks every "[[" so say reads it as text.
func defuseSayCommands(text string) string {
	for strings.Contains(text, "[[") {
		text = strings.ReplaceAll(text, "[[", "[ [")
	}
	return text
}

func sayVolumePrefix(volume float64) string {
	return fmt.Sprintf("[[volm %.2f]] ", volume)
}

// Alex                en_US    # Most people recognize me by my voice.
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := sayVoiceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		voices = append(voices, Voice{ID: m[1], Name: m[1], Languages: []string{m[2]}})
	}
	return voices
}
