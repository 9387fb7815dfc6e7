package log

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger *log.Logger

// InitLog configures the process-wide logger. appName becomes the prefix so
// multiple node types sharing a console stay distinguishable.
func InitLog(appName string, logLevel string) {
	logger = log.New(os.Stdout)
	logger.SetPrefix(appName)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.DateTime)
	logger.SetReportCaller(true)
	logger.SetLevel(parseLevel(logLevel))
}

// SetLevel changes the level at runtime, for config hot reload.
func SetLevel(logLevel string) {
	ensure().SetLevel(parseLevel(logLevel))
}

func parseLevel(logLevel string) log.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func ensure() *log.Logger {
	if logger == nil {
		InitLog("janryu", "info")
	}
	return logger
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		ensure().Fatalf(format)
	} else {
		ensure().Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		ensure().Infof(format)
	} else {
		ensure().Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		ensure().Warnf(format)
	} else {
		ensure().Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		ensure().Errorf(format)
	} else {
		ensure().Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		ensure().Debugf(format)
	} else {
		ensure().Debugf(format, args...)
	}
}
