package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

/*
New returns logger for test t on debug level. Log output is written to
the test log, so it is only shown for failed tests or in verbose mode.
*/
func New(t testing.TB) zerolog.Logger {
	return NewLvl(t, zerolog.DebugLevel)
}

// NewLvl returns logger for test t on the given level.
func NewLvl(t testing.TB, level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:        zerolog.NewTestWriter(t),
		NoColor:    true,
		TimeFormat: "15:04:05.000",
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
