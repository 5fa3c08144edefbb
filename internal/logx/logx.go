package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var lvl atomic.Int32

func init() {
	// default to Info
	lvl.Store(int32(Info))
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags)
}

// SetOutput redirects all log lines, mostly for tests.
func SetOutput(w io.Writer) { log.SetOutput(w) }

func SetLevelFromString(s string) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		lvl.Store(int32(Debug))
	case "info", "":
		lvl.Store(int32(Info))
	case "warn", "warning":
		lvl.Store(int32(Warn))
	case "err", "error":
		lvl.Store(int32(Error))
	default:
		lvl.Store(int32(Info))
	}
}

func Enabled(l Level) bool { return Level(lvl.Load()) <= l }

func Debugf(format string, args ...any) {
	if Enabled(Debug) {
		log.Printf(prefix("DEBUG ")+format, args...)
	}
}

func Infof(format string, args ...any) {
	if Enabled(Info) {
		log.Printf(prefix("INFO  ")+format, args...)
	}
}

func Warnf(format string, args ...any) {
	if Enabled(Warn) {
		log.Printf(prefix("WARN  ")+format, args...)
	}
}

func Errorf(format string, args ...any) {
	if Enabled(Error) {
		log.Printf(prefix("ERROR ")+format, args...)
	}
}

func prefix(level string) string { return fmt.Sprintf("[%s] ", level) }

// kv renders alternating key/value pairs as "k=v k=v".
func kv(keysAndValues []any) string {
	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, "%v", keysAndValues[i])
		}
	}
	return b.String()
}
