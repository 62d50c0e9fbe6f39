package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// InitLogger initializes the application logger. LOG_LEVEL overrides the
// default info level.
func InitLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	return logger
}
