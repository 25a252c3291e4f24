package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"whatsrelay/internal/models"
)

// Watch reloads the configuration whenever the config file changes and
// passes each valid result to onChange. Invalid edits are logged and ignored.
// It does nothing when no file was loaded.
func (l *Loader) Watch(logger *logrus.Logger, onChange func(*models.Config)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			logger.WithError(err).WithField("path", e.Name).Error("Failed to reload configuration")
			return
		}
		logger.WithFields(logrus.Fields{
			"path":      e.Name,
			"operation": e.Op.String(),
		}).Info("Configuration reloaded")

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).Error("Config change callback panicked")
			}
		}()
		onChange(cfg)
	})
	l.v.WatchConfig()

	logger.WithField("path", l.v.ConfigFileUsed()).Info("Configuration watcher started")
	return true
}
