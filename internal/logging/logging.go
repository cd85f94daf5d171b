package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm/logger"

	"github.com/konorlevich/sfms/internal/config"
)

// SlowQueryThreshold is the duration above which a statement is logged as slow.
const SlowQueryThreshold = 200 * time.Millisecond

// New builds a logger writing to stderr and, when cfg.File is set, to a rotated file.
func New(cfg config.LogConfig) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	l := log.New()
	l.SetLevel(level)
	l.SetOutput(newWriter(cfg))
	if cfg.JSON {
		l.SetFormatter(&log.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	} else {
		l.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: cfg.TimeFormat,
			DisableColors:   cfg.NoColor || cfg.NoTerminal,
		})
	}
	return l, nil
}

func newWriter(cfg config.LogConfig) io.Writer {
	var writers []io.Writer

	if !cfg.NoTerminal {
		writers = append(writers, os.Stderr)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.Rotation.MaxSize,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAge:     cfg.Rotation.MaxAge,
			Compress:   cfg.Rotation.Compress,
		})
	}
	if len(writers) == 0 {
		return io.Discard
	}
	return io.MultiWriter(writers...)
}

// debugPrinter sends gorm's formatted lines to the entry at debug level.
type debugPrinter struct {
	entry *log.Entry
}

func (p debugPrinter) Printf(format string, args ...interface{}) {
	p.entry.Debugf(format, args...)
}

// NewGormLogger bridges gorm's logger to l. With trace set every statement is logged,
// otherwise only slow statements and errors.
func NewGormLogger(l *log.Logger, trace bool) logger.Interface {
	level := logger.Warn
	if trace {
		level = logger.Info
	}
	return logger.New(debugPrinter{entry: l.WithField("component", "gorm")}, logger.Config{
		SlowThreshold:             SlowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
