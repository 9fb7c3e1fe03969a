package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"docstore/internal/config"
)

// New builds the process logger. JSON output uses "ts" and "msg" keys so
// access, migration and application logs share one line format.
func New(cfg config.LogConfig, loc *time.Location) *logrus.Logger {
	return NewWithWriter(os.Stdout, cfg, loc)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LogConfig, loc *time.Location) *logrus.Logger {
	if loc == nil {
		loc = time.UTC
	}
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	var f logrus.Formatter
	if strings.EqualFold(cfg.Format, "text") {
		f = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	} else {
		f = &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
				logrus.FieldKeyMsg:  "msg",
			},
		}
	}
	l.SetFormatter(&locationFormatter{next: f, loc: loc})
	return l
}

// locationFormatter renders entry timestamps in a fixed location.
type locationFormatter struct {
	next logrus.Formatter
	loc  *time.Location
}

func (f *locationFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.In(f.loc)
	return f.next.Format(e)
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
