package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Output goes to stderr so that report
// and table output on stdout stays machine-readable.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// SetLogLevel sets the level by name ("debug", "info", "warn", "error").
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput redirects log output.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to one JSON object per line.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}

// WithInterface returns a logger scoped to a network interface.
func WithInterface(ifname string) *logrus.Entry {
	return Logger.WithField("interface", ifname)
}

// WithCheck returns a logger scoped to a check running against an interface.
func WithCheck(check, ifname string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"check":     check,
		"interface": ifname,
	})
}

// WithQueue returns a logger scoped to one queue of an interface.
func WithQueue(ifname, qtype string, id uint32) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"interface": ifname,
		"queue":     qtype,
		"queue_id":  id,
	})
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
