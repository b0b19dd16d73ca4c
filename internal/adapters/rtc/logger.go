package rtc

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PionLogger routes pion's internal logs into zerolog.
type PionLogger struct {
	log zerolog.Logger
}

func NewPionLogger(level zerolog.Level) *PionLogger {
	return &PionLogger{log: log.Logger.Level(level).With().Str("module", "pion").Logger()}
}

func (p PionLogger) NewLogger(scope string) logging.LeveledLogger {
	return PionLogger{log: p.log.With().Str("mod", scope).Logger()}
}

func (p PionLogger) Trace(msg string) { p.log.Trace().Msg(msg) }

func (p PionLogger) Tracef(format string, args ...any) { p.log.Trace().Msgf(format, args...) }

func (p PionLogger) Debug(msg string) { p.log.Debug().Msg(msg) }

func (p PionLogger) Debugf(format string, args ...any) { p.log.Debug().Msgf(format, args...) }

func (p PionLogger) Info(msg string) { p.log.Info().Msg(msg) }

func (p PionLogger) Infof(format string, args ...any) { p.log.Info().Msgf(format, args...) }

func (p PionLogger) Warn(msg string) { p.log.Warn().Msg(msg) }

func (p PionLogger) Warnf(format string, args ...any) { p.log.Warn().Msgf(format, args...) }

func (p PionLogger) Error(msg string) { p.log.Error().Msg(msg) }

func (p PionLogger) Errorf(format string, args ...any) { p.log.Error().Msgf(format, args...) }
