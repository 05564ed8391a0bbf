package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

func Init() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
}

func Get() *logrus.Logger {
	once.Do(func() {
		if logger == nil {
			Init()
		}
	})
	return logger
}

// Configure applies level and format to the process logger. Format is
// "json", "text" or "auto"; auto picks text when stderr is a terminal.
func Configure(level, format string) {
	log := Get()

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, keeping info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	log.SetFormatter(formatterFor(format, isatty.IsTerminal(os.Stderr.Fd())))
}

func formatterFor(format string, terminal bool) logrus.Formatter {
	switch strings.ToLower(format) {
	case "text":
		return &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		return &logrus.JSONFormatter{}
	}
	if terminal {
		return &logrus.TextFormatter{FullTimestamp: true}
	}
	return &logrus.JSONFormatter{}
}
