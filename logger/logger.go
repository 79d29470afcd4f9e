package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatWallet is console output without timestamps and caller info,
	// meant for interactive CLI use.
	FormatWallet = "wallet"

	consoleTimeFormat = "15:04:05.000000"
)

// LogConfiguration describes how to build a logger. The zero value builds
// a json logger writing debug level records to stderr.
type LogConfiguration struct {
	Level        string `yaml:"defaultLevel"`
	Format       string `yaml:"format"`
	OutputPath   string `yaml:"outputPath"`
	TimeLocation string `yaml:"timeLocation"`
	ShowCaller   bool   `yaml:"showCaller"`

	// Writer overrides OutputPath when set.
	Writer io.Writer `yaml:"-"`
}

// LoadConfiguration reads YAML logger configuration from file.
func LoadConfiguration(fileName string) (*LogConfiguration, error) {
	f, err := os.Open(filepath.Clean(fileName))
	if err != nil {
		return nil, fmt.Errorf("opening logger configuration file: %w", err)
	}
	defer f.Close()

	cfg := &LogConfiguration{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding logger configuration (%s): %w", fileName, err)
	}
	return cfg, nil
}

// New builds zerolog logger based on the configuration.
func New(cfg *LogConfiguration) (zerolog.Logger, error) {
	level, err := LevelFromString(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out, err := cfg.writer()
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.TimeLocation != "" {
		loc, err := time.LoadLocation(cfg.TimeLocation)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("loading time location: %w", err)
		}
		// zerolog timestamp function is global
		zerolog.TimestampFunc = func() time.Time {
			return time.Now().In(loc)
		}
	}

	var l zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatJSON, "":
		l = zerolog.New(out).With().Timestamp().Logger()
	case FormatConsole:
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:          out,
			TimeFormat:   consoleTimeFormat,
			FormatCaller: consoleFormatCallerLastTwoDirs,
		}).With().Timestamp().Logger()
	case FormatWallet:
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:          out,
			NoColor:      true,
			PartsExclude: []string{zerolog.TimestampFieldName},
		})
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}
	if cfg.ShowCaller {
		l = l.With().Caller().Logger()
	}
	return l.Level(level), nil
}

func (cfg *LogConfiguration) writer() (io.Writer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil
	}
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0700); err != nil {
			return nil, fmt.Errorf("creating directory for log file: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, nil
	}
}

// LevelFromString parses log level name, empty string means debug.
func LevelFromString(s string) (zerolog.Level, error) {
	switch strings.ToUpper(s) {
	case "", "DEBUG":
		return zerolog.DebugLevel, nil
	case "TRACE":
		return zerolog.TraceLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARN", "WARNING":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "NONE":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
}

// Returns caller with last two directories.
// Meant for using in console for development - not performance optimized.
func consoleFormatCallerLastTwoDirs(i interface{}) string {
	var c string
	if cc, ok := i.(string); ok {
		c = cc
	}
	if len(c) > 0 {
		split := strings.Split(c, string(os.PathSeparator))
		l := len(split)
		if l > 2 {
			c = fmt.Sprintf("%s/%s/%s", split[l-3], split[l-2], split[l-1])
		} else if l > 1 {
			c = fmt.Sprintf("%s/%s", split[l-2], split[l-1])
		}
	}
	return c
}
