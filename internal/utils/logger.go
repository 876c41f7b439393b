package utils

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	baseOnce sync.Once
	base     *logrus.Logger
)

func root() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stdout)
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
		base.SetLevel(logrus.InfoLevel)
		if os.Getenv("DEBUG") == "true" {
			base.SetLevel(logrus.DebugLevel)
		}
	})
	return base
}

// ConfigureLogging 设置全局日志级别与格式 (text, json)
func ConfigureLogging(level, format string, out io.Writer) error {
	l := root()
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return err
		}
		// DEBUG=true 优先
		if os.Getenv("DEBUG") != "true" {
			l.SetLevel(lvl)
		}
	}
	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
	default:
		l.Warnf("未知日志格式 %q, 使用 text", format)
	}
	if out != nil {
		l.SetOutput(out)
	}
	return nil
}

// Logger 带组件名的日志记录器
type Logger struct {
	name  string
	entry *logrus.Entry
}

func NewLogger(name string) *Logger {
	return &Logger{
		name:  name,
		entry: root().WithField("component", name),
	}
}

// With 返回附加字段的子记录器
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{name: l.name, entry: l.entry.WithField(key, value)}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Writer 供 Fiber 访问日志等使用，每次写入记为一条 info 日志
func (l *Logger) Writer() io.Writer {
	return infoWriter{entry: l.entry}
}

type infoWriter struct {
	entry *logrus.Entry
}

func (w infoWriter) Write(p []byte) (int, error) {
	w.entry.Info(strings.TrimRight(string(p), "\r\n"))
	return len(p), nil
}
