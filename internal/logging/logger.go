package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is what components receive.
type Logger = logrus.FieldLogger

type Fields = logrus.Fields

// New builds a JSON logger at level (debug|info|warn|error, info when
// unparseable) with every entry tagged service=<service>.
func New(level, service string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l.WithField("service", service)
}

// Discard is a logger for tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
