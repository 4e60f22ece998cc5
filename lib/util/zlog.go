package util

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface, following
// the same Fatal/Warning/Notice/Info split dbsteward's top-level type uses.
type ZerologLogger struct {
	Zl zerolog.Logger
}

func NewZerologLogger() *ZerologLogger {
	return &ZerologLogger{
		Zl: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

// SetVerbosity adjusts the logger's level the same way dbsteward's
// setVerbosity does: -v/-q shift relative to Info, --debug forces Trace.
func (self *ZerologLogger) SetVerbosity(verbose, quiet int, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.TraceLevel
	}
	level -= zerolog.Level(verbose)
	level += zerolog.Level(quiet)
	if level > zerolog.PanicLevel {
		level = zerolog.PanicLevel
	}
	if level < zerolog.TraceLevel {
		level = zerolog.TraceLevel
	}
	self.Zl = self.Zl.Level(level)
}

func (self *ZerologLogger) Fatal(s string, args ...interface{}) {
	self.Zl.Fatal().Msgf(s, args...)
}

func (self *ZerologLogger) FatalIfError(err error, s string, args ...interface{}) {
	if err != nil {
		self.Zl.Fatal().Err(err).Msgf(s, args...)
	}
}

func (self *ZerologLogger) Error(s string, args ...interface{}) {
	self.Zl.Error().Msgf(s, args...)
}

func (self *ZerologLogger) ErrorIfError(err error, s string, args ...interface{}) {
	if err != nil {
		self.Zl.Error().Err(errors.WithStack(err)).Msgf(s, args...)
	}
}

func (self *ZerologLogger) Warning(s string, args ...interface{}) {
	self.Zl.Warn().Msgf(s, args...)
}

func (self *ZerologLogger) Notice(s string, args ...interface{}) {
	// TODO(go,nth) differentiate between notice and info
	self.Zl.Info().Msgf(s, args...)
}

func (self *ZerologLogger) Info(s string, args ...interface{}) {
	self.Zl.Info().Msgf(s, args...)
}

func (self *ZerologLogger) Trace(s string, args ...interface{}) {
	self.Zl.Trace().Msgf(s, args...)
}
