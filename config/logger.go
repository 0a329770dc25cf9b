package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logg *logrus.Logger

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)
}

// GetLogger returns the process-wide logger
func GetLogger() *logrus.Logger {
	return logg
}

// ConfigureLogger applies the level and formatter for the running environment.
// Production logs are JSON, everything else is human-readable text.
func ConfigureLogger(cfg *Config) {
	if cfg.IsProduction() {
		logg.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logg.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, keeping info")
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
}

// LogError writes a structured error entry tagged with where it happened
func LogError(logger logrus.FieldLogger, moduleName string, funcName string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
