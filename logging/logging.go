package logging

import (
	"io"
	"os"

	"github.com/pevans/ainews/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the application logger. A file other than "-" is rotated by
// size.
func New(cfg config.Log) *logrus.Logger {
	logger := logrus.New()

	var writer io.Writer
	if cfg.File == "" || cfg.File == "-" {
		writer = os.Stderr
	} else {
		writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    20,
			MaxBackups: 5,
			MaxAge:     28,
		}
	}
	logger.Out = writer

	switch cfg.Formatter {
	case "json":
		logger.Formatter = &logrus.JSONFormatter{}
	default:
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Level = level

	return logger
}
