package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	var tests = []struct {
		in      string
		want    zerolog.Level
		wantErr string
	}{
		{in: "", want: zerolog.DebugLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: "INFO", want: zerolog.InfoLevel},
		{in: "Warning", want: zerolog.WarnLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "ERROR", want: zerolog.ErrorLevel},
		{in: "trace", want: zerolog.TraceLevel},
		{in: "none", want: zerolog.Disabled},
		{in: "loud", wantErr: `unknown log level "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := New(&LogConfiguration{Level: "info", Writer: buf})
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str(AssetIDKey, "0x01").Msg("visible")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "visible", rec["message"])
	require.Equal(t, "0x01", rec[AssetIDKey])
	require.Equal(t, "info", rec["level"])
	require.Contains(t, rec, "time")
}

func TestNew_Wallet(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := New(&LogConfiguration{Format: FormatWallet, Writer: buf})
	require.NoError(t, err)
	l.Info().Msg("plan created")
	require.Contains(t, buf.String(), "plan created")
	require.NotContains(t, buf.String(), "{")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&LogConfiguration{Format: "xml", Writer: &bytes.Buffer{}})
	require.EqualError(t, err, `unknown log format "xml"`)

	_, err = New(&LogConfiguration{Level: "loud", Writer: &bytes.Buffer{}})
	require.EqualError(t, err, `unknown log level "loud"`)

	_, err = New(&LogConfiguration{TimeLocation: "Mars/Olympus", Writer: &bytes.Buffer{}})
	require.ErrorContains(t, err, "loading time location")
}

func TestNew_OutputFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "planner.log")
	l, err := New(&LogConfiguration{OutputPath: logFile})
	require.NoError(t, err)
	l.Info().Msg("to file")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
}

func TestLoadConfiguration(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "logger-config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("defaultLevel: WARN\nformat: console\noutputPath: stdout\nshowCaller: true\n"), 0600))

	cfg, err := LoadConfiguration(cfgFile)
	require.NoError(t, err)
	require.Equal(t, &LogConfiguration{Level: "WARN", Format: "console", OutputPath: "stdout", ShowCaller: true}, cfg)

	_, err = LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func Test_consoleFormatCallerLastTwoDirs(t *testing.T) {
	sep := string(os.PathSeparator)
	require.Equal(t, "", consoleFormatCallerLastTwoDirs(nil))
	require.Equal(t, "a.go:1", consoleFormatCallerLastTwoDirs("a.go:1"))
	require.Equal(t, "x/a.go:1", consoleFormatCallerLastTwoDirs("x"+sep+"a.go:1"))
	require.Equal(t, "y/z/a.go:1", consoleFormatCallerLastTwoDirs(sep+"w"+sep+"y"+sep+"z"+sep+"a.go:1"))
}
