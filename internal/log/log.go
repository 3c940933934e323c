package log

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// UserIDKey is the fiber Locals key the auth middleware stores the caller under.
const UserIDKey = "userID"

var std = newLogger(os.Stdout)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "action",
		},
	})
	return l
}

// Setup points the event log at stdout and, when file is set, at a rotated
// log file as well. The returned closer flushes the file sink.
func Setup(file string) io.Closer {
	if file == "" {
		std.SetOutput(os.Stdout)
		return nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	std.SetOutput(io.MultiWriter(os.Stdout, lj))
	return lj
}

// SetOutput redirects the event log; tests use it to capture entries.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// Writer exposes the event log sink so fiber's access logger can share it.
// It follows later SetOutput calls.
func Writer() io.Writer { return sink{} }

type sink struct{}

func (sink) Write(p []byte) (int, error) { return std.Out.Write(p) }

// Logger is for events that happen outside a request (startup, cron jobs).
func Logger() *logrus.Logger { return std }

func entry(c *fiber.Ctx, fields map[string]any) *logrus.Entry {
	f := logrus.Fields{}
	if c != nil {
		f["ip"] = c.IP()
		f["method"] = c.Method()
		f["path"] = c.Path()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			f["req_id"] = rid
		}
		if uid, ok := c.Locals(UserIDKey).(string); ok && uid != "" {
			f["user_id"] = uid
		}
	}
	if len(fields) > 0 {
		f["fields"] = fields
	}
	return std.WithFields(f)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { entry(c, fields).Info(action) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	entry(c, fields).WithField("audit", true).Info(action)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	entry(c, fields).WithField("security", true).Warn(action)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry(c, fields)
	if err != nil {
		e = e.WithField("err", err.Error())
	}
	e.Error(action)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
