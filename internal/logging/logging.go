package logging

import (
	"io"
	"os"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	logger.SetLevel(logrus.WarnLevel)
}

func GetLogger() *logrus.Logger {
	return logger
}

func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)
	return nil
}

// SetVerbosity maps the CLI verbosity onto a log level.
func SetVerbosity(v domain.VerbosityLevel) {
	switch v {
	case domain.VerbositySilent:
		logger.SetLevel(logrus.ErrorLevel)
	case domain.VerbosityVerbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
}

func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}
