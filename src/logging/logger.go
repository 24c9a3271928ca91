// Package logging is the shared leveled logger of the viewer and the report
// CLI. Everything goes to stderr so chart output and summaries on stdout stay
// machine-readable.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level orders message severities; messages below the current level are
// dropped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var levelPrefix = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var currentLevel int32 = int32(LevelInfo)

var baseLogger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

func init() {
	// CALVIEWER_LOG raises or lowers verbosity for both binaries without
	// needing a flag on every invocation.
	if v := os.Getenv("CALVIEWER_LOG"); v != "" {
		SetLevel(v)
	}
}

// SetLevel parses and sets the global log level. Unknown names are ignored so
// a typo in the env var cannot silence the tool.
func SetLevel(s string) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return
	}
	atomic.StoreInt32(&currentLevel, int32(l))
}

// GetLevel returns the current global log level.
func GetLevel() Level { return Level(atomic.LoadInt32(&currentLevel)) }

func logf(l Level, format string, args ...interface{}) {
	if GetLevel() > l {
		return
	}
	// Without args the input is a plain message; skipping Sprintf keeps
	// literal % characters in pre-formatted strings intact.
	if len(args) == 0 {
		baseLogger.Printf("[%s] %s", levelPrefix[l], format)
		return
	}
	baseLogger.Printf("[%s] %s", levelPrefix[l], fmt.Sprintf(format, args...))
}

func Debugf(format string, a ...interface{}) { logf(LevelDebug, format, a...) }
func Infof(format string, a ...interface{})  { logf(LevelInfo, format, a...) }
func Warnf(format string, a ...interface{})  { logf(LevelWarn, format, a...) }
func Errorf(format string, a ...interface{}) { logf(LevelError, format, a...) }

// TimeTrack logs how long a phase took, at debug level. Call with defer and
// the phase's start time.
func TimeTrack(start time.Time, label string) {
	Debugf("%s took %s", label, time.Since(start))
}
