package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the harness logger. Output goes to stdout only: the
// verifier runs inside CI jobs where file logging just hides diagnostics.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if override, err := logrus.ParseLevel(envLevel); err == nil {
			parsed = override
		}
	}
	logger.SetLevel(parsed)

	return logger
}
