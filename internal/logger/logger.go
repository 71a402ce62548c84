package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var std *logrus.Logger

// Init builds the process logger. Development gets colored text output,
// everything else gets JSON.
func Init(level string, development bool) *logrus.Logger {
	return initTo(os.Stdout, level, development)
}

func initTo(out io.Writer, level string, development bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if level == "" {
		level = "info"
		if development {
			level = "debug"
		}
	}

	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", level).Warn("Invalid LOG_LEVEL, using INFO")
	}

	if development {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	std = log
	return log
}

// Get returns the process logger, initializing a production logger on first use.
func Get() *logrus.Logger {
	if std == nil {
		return Init("info", false)
	}
	return std
}

// WithComponent tags entries with the emitting component.
func WithComponent(name string) *logrus.Entry {
	return Get().WithField("component", name)
}
