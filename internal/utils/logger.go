package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggerOptions configures InitLogger.
type LoggerOptions struct {
	Level  string // trace|debug|info|warn|error
	Format string // text|json
	File   string // log file prefix; empty logs to stdout only
}

// InitLogger builds the agent logger. When a file prefix is set, output goes
// to both stdout and <prefix>_<timestamp>.log.
func InitLogger(opts LoggerOptions) (*logrus.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	l.SetOutput(os.Stdout)
	if opts.File != "" {
		name := fmt.Sprintf("%s_%s.log", opts.File, time.Now().Format("2006-01-02_15-04-05"))
		file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		l.SetOutput(io.MultiWriter(file, os.Stdout))
	}

	return l, nil
}

// SilentLogger discards everything.
func SilentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
