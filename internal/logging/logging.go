// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"vdl2_parser/internal/config"
)

// Init configures the standard logrus logger from cfg. Log output goes to
// stderr so that decoded output on stdout stays clean; a rotating file is
// added when cfg.File.Path is set.
func Init(cfg config.LogConfig) error {
	return Configure(logrus.StandardLogger(), cfg, os.Stderr)
}

// Configure applies cfg to logger, writing to base plus the optional file.
func Configure(logger *logrus.Logger, cfg config.LogConfig, base io.Writer) error {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unsupported log format: %s (must be json or text)", cfg.Format)
	}

	writers := []io.Writer{base}
	if cfg.File.Path != "" {
		writers = append(writers, NewRotatingFile(cfg.File.Path, cfg.File.Rotation))
	}
	logger.SetOutput(io.MultiWriter(writers...))
	return nil
}

// NewRotatingFile returns a lumberjack writer for path.
func NewRotatingFile(path string, r config.RotationConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}
}
