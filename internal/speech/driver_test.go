package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	stdin string
	name  string
	args  []string
}

func fakeRunner(out []byte, err error, calls *[]recordedRun) runFunc {
	return func(_ context.Context, stdin, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedRun{stdin: stdin, name: name, args: args})
		return out, err
	}
}

func lookPathOnly(found ...string) lookPathFunc {
	return func(file string) (string, error) {
		for _, f := range found {
			if f == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("not found")
	}
}

const espeakVoicesOutput = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  en-gb           --/M      English_(Great_Britain) gmw/en          (en 2)
 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)
`

func TestParseEspeakVoices(t *testing.T) {
	voices := parseEspeakVoices([]byte(espeakVoicesOutput))

	require.Len(t, voices, 3)
	assert.Equal(t, Voice{ID: "af", Name: "Afrikaans", Languages: []string{"af"}}, voices[0])
	assert.Equal(t, "en-gb", voices[1].ID)
	assert.Equal(t, "English (Great Britain)", voices[1].Name)
	assert.Equal(t, []string{"en-gb", "en"}, voices[1].Languages)
}

func TestEspeakBackend_Play(t *testing.T) {
	var calls []recordedRun
	b := &EspeakBackend{run: fakeRunner(nil, nil, &calls), lookPath: lookPathOnly("espeak")}

	err := b.Play(context.Background(), "-hello", Properties{Rate: 150, Volume: 1.5, Voice: "en-us"})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "/usr/bin/espeak", calls[0].name)
	assert.Equal(t, "-hello", calls[0].stdin)
	assert.Equal(t, []string{"-s", "150", "-a", "150", "-v", "en-us"}, calls[0].args)
}

func TestEspeakBackend_PrefersEspeakNG(t *testing.T) {
	var calls []recordedRun
	b := &EspeakBackend{run: fakeRunner([]byte(espeakVoicesOutput), nil, &calls), lookPath: lookPathOnly("espeak", "espeak-ng")}

	voices, err := b.Voices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 3)
	assert.Equal(t, "/usr/bin/espeak-ng", calls[0].name)
	assert.Equal(t, []string{"--voices"}, calls[0].args)
}

func TestEspeakBackend_InitUnavailable(t *testing.T) {
	b := &EspeakBackend{run: runCommand, lookPath: lookPathOnly()}

	_, err := b.Init(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestEspeakBackend_InitDefaults(t *testing.T) {
	b := &EspeakBackend{run: runCommand, lookPath: lookPathOnly("espeak-ng")}

	props, err := b.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Properties{Rate: 200, Volume: 1.0}, props)
}

func TestParseSayVoices(t *testing.T) {
	out := []byte(`Alex                en_US    # Most people recognize me by my voice.
Bad News            en_US    # The light you see at the end of the tunnel is the headlamp of a fast approaching train.
Thomas              fr_FR    # Bonjour, je m'appelle Thomas.
garbage line
`)
	voices := parseSayVoices(out)

	require.Len(t, voices, 3)
	assert.Equal(t, "Alex", voices[0].ID)
	assert.Equal(t, "Bad News", voices[1].Name)
	assert.Equal(t, []string{"fr_FR"}, voices[2].Languages)
}

func TestSayBackend_Play(t *testing.T) {
	var calls []recordedRun
	b := &SayBackend{binary: "say", run: fakeRunner(nil, nil, &calls), lookPath: lookPathOnly("say")}

	err := b.Play(context.Background(), "hello", Properties{Rate: 125, Volume: 1.5, Voice: "Alex"})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-r", "125", "-v", "Alex"}, calls[0].args)
	assert.Equal(t, "[[volm 1.50]] hello", calls[0].stdin)
}

func TestSayBackend_PlayDefusesEmbeddedCommands(t *testing.T) {
	var calls []recordedRun
	b := &SayBackend{binary: "say", run: fakeRunner(nil, nil, &calls), lookPath: lookPathOnly("say")}

	err := b.Play(context.Background(), "[[volm 0]] quiet [[rate 400]]", Properties{Rate: 125, Volume: 1.5})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "[[volm 1.50]] [ [volm 0]] quiet [ [rate 400]]", calls[0].stdin)
	assert.Equal(t, 1, strings.Count(calls[0].stdin, "[["))
}

func TestDefuseSayCommands(t *testing.T) {
	tests := map[string]string{
		"plain text":     "plain text",
		"[[rate 400]]":   "[ [rate 400]]",
		"[[[volm 0]]":    "[ [ [volm 0]]",
		"[[[[slnc 900]]": "[ [ [ [slnc 900]]",
		"[single]":       "[single]",
	}
	for in, want := range tests {
		got := defuseSayCommands(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.NotContains(t, got, "[[")
	}
}

func TestNewBackend(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	tests := []struct {
		driver   string
		wantName string
		wantErr  bool
	}{
		{DriverEspeak, "espeak", false},
		{DriverSay, "say", false},
		{DriverLog, "log", false},
		{"festival", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			b, err := NewBackend(tt.driver, "", logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}

func TestAutoBackend(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	tests := []struct {
		name     string
		goos     string
		found    []string
		wantName string
	}{
		{"macOS prefers say", "darwin", []string{"say", "espeak-ng"}, "say"},
		{"macOS without say", "darwin", []string{"espeak-ng"}, "espeak"},
		{"linux ignores say", "linux", []string{"say", "espeak"}, "espeak"},
		{"nothing installed", "linux", nil, "log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := autoBackend(logger, tt.goos, lookPathOnly(tt.found...))
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}

func TestNewBackend_AutoIgnoresBinaryOverride(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewBackend(DriverAuto, "/opt/espeak/bin/espeak-ng", log.New(&buf, "", 0))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "ignoring binary override")
	switch backend := b.(type) {
	case *SayBackend:
		assert.Equal(t, "say", backend.binary)
	case *EspeakBackend:
		assert.Empty(t, backend.binary)
	}
}

func TestLogBackend(t *testing.T) {
	b := NewLogBackend(log.New(io.Discard, "", 0))
	require.NoError(t, NewSpeaker(b).Speak(context.Background(), "hello"))
}
