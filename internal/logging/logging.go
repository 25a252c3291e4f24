package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/models"
	"whatsrelay/internal/privacy"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. Identifiers are masked unless verbose is set;
// verbose also forces debug level. The returned closer releases the log file.
func New(cfg models.LoggingConfig, verbose bool) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := ApplyLevel(logger, cfg.Level, verbose); err != nil {
		return nil, nil, err
	}
	if !verbose {
		logger.AddHook(privacy.Hook{})
	}

	if !cfg.LogToFile {
		return logger, nopCloser{}, nil
	}

	file, err := NewDailyFile(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return logger, file, nil
}

// ApplyLevel sets the level from its config name. Verbose always means debug.
func ApplyLevel(logger *logrus.Logger, level string, verbose bool) error {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return nil
	}
	if level == "" {
		logger.SetLevel(logrus.InfoLevel)
		return nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(parsed)
	return nil
}
