package main

import (
	"bytes"
	"flag"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxmix/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVoicevox поднимает тестовый движок и возвращает host и port
func fakeVoicevox(t *testing.T, synthesisStatus int) (string, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/speakers":
			_, _ = io.WriteString(w, `[{"name": "四国めたん", "speaker_uuid": "7ffcb7ce-00ec-4bdc-82cd-45a8889e43ff",
				"styles": [{"name": "ノーマル", "id": 2}, {"name": "あまあま", "id": 0}]}]`)
		case "/audio_query":
			_, _ = io.WriteString(w, `{"accent_phrases": [], "speedScale": 1, "pitchScale": 0, "intonationScale": 1,
				"volumeScale": 1, "prePhonemeLength": 0.1, "postPhonemeLength": 0.1,
				"outputSamplingRate": 24000, "outputStereo": false, "kana": ""}`)
		case "/synthesis":
			w.WriteHeader(synthesisStatus)
			_, _ = io.WriteString(w, "test audio data")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_TEXTFILE", "")

	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "A CLI tool for high-quality speech synthesis")

	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Generate speech from text")

	code, _, stderr = runCLI(t, "sing")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "sing"`)
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")

	assert.Equal(t, 0, code)
	assert.Equal(t, "voxmix "+version+"\n", stdout)
}

func TestRun_SayHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "say", "-h")

	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "Generate speech from text")
	assert.Contains(t, stderr, "-speaker")
}

func TestRun_SayMissingText(t *testing.T) {
	code, _, stderr := runCLI(t, "say")

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "required")
}

func TestRun_SayValidation(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "пустой текст", args: []string{"say", ""}, expected: "Text cannot be empty"},
		{name: "скорость", args: []string{"say", "--speed", "0", "test"}, expected: "Speed must be greater than 0"},
		{name: "высота", args: []string{"say", "--pitch", "0", "test"}, expected: "Pitch must be greater than 0"},
		{name: "громкость", args: []string{"say", "--volume", "0", "test"}, expected: "Volume must be greater than 0"},
		{name: "флаг после текста", args: []string{"say", "test", "-volume", "-1"}, expected: "Volume must be greater than 0"},
		{name: "пустой текст и скорость", args: []string{"say", "-speed", "0", ""}, expected: "Text cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Проверка выполняется до обращения к движку, поэтому сервер не нужен
			code, _, stderr := runCLI(t, append(tt.args, "-port", "1")...)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.expected)
		})
	}
}

func TestRun_Say(t *testing.T) {
	host, port := fakeVoicevox(t, http.StatusOK)
	output := filepath.Join(t.TempDir(), "test_output.wav")

	code, stdout, stderr := runCLI(t, "say",
		"--output", output,
		"--host", host,
		"--port", port,
		"--speaker", "四国めたん（あまあま）",
		"Hello, World!")

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, output)

	saved, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []byte("test audio data"), saved)
}

func TestRun_SayEngineError(t *testing.T) {
	host, port := fakeVoicevox(t, http.StatusInternalServerError)
	output := filepath.Join(t.TempDir(), "test_output.wav")

	code, _, stderr := runCLI(t, "say", "-o", output, "-host", host, "-port", port, "テスト")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "VOICEVOX API error")

	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_SayUnknownSpeaker(t *testing.T) {
	host, port := fakeVoicevox(t, http.StatusOK)
	output := filepath.Join(t.TempDir(), "test_output.wav")

	code, _, stderr := runCLI(t, "say", "-o", output, "-host", host, "-port", port, "-speaker", "春日部つむぎ", "テスト")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Speaker '春日部つむぎ' not found")
}

func TestRun_SayNoServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(listener.Addr().String())
	listener.Close()

	code, _, stderr := runCLI(t, "say", "-o", filepath.Join(t.TempDir(), "out.wav"), "-port", port, "Hello, World!")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "HTTP request failed")
}

func TestRun_Speakers(t *testing.T) {
	host, port := fakeVoicevox(t, http.StatusOK)

	code, stdout, stderr := runCLI(t, "speakers", "-host", host, "-port", port)

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "四国めたん\t7ffcb7ce-00ec-4bdc-82cd-45a8889e43ff")
	assert.Contains(t, stdout, "  2\t四国めたん（ノーマル）")
	assert.Contains(t, stdout, "  0\t四国めたん（あまあま）")
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	host, port := fakeVoicevox(t, http.StatusOK)
	metricsPath := filepath.Join(t.TempDir(), "voxmix.prom")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_TEXTFILE", metricsPath)

	var stdout, stderr bytes.Buffer
	code := run([]string{"say", "-o", filepath.Join(t.TempDir(), "out.wav"), "-host", host, "-port", port, "-speaker", "2", "テスト"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `voxmix_synthesis_total{status="success"} 1`)
	assert.Contains(t, string(data), `voxmix_engine_requests_total{endpoint="synthesis",status="200"} 1`)
}

func TestInitLogger_Format(t *testing.T) {
	tests := []struct {
		env  string
		json bool
	}{
		{env: "development", json: false},
		{env: "staging", json: true},
		{env: "production", json: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "logs", "voxmix.log")
			cfg := &config.Config{App: config.AppConfig{Env: tt.env, LogLevel: "info", LogFile: logFile}}

			logger, err := initLogger(cfg)
			require.NoError(t, err)
			logger.Info("проверка формата")
			_ = logger.Sync()

			data, err := os.ReadFile(logFile)
			require.NoError(t, err)
			line := strings.TrimSpace(string(data))
			assert.Contains(t, line, "проверка формата")
			assert.Equal(t, tt.json, strings.HasPrefix(line, "{"), line)
		})
	}
}

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	speed := fs.Float64("speed", 1.0, "")
	fs.SetOutput(io.Discard)

	positional, err := parseInterspersed(fs, []string{"-speed", "2", "hello", "-speed", "3", "--", "-world"})

	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "-world"}, positional)
	assert.Equal(t, 3.0, *speed)
}
