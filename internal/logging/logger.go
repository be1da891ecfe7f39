package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Logger interface {
	Debug(format string, a ...any)
	Info(format string, a ...any)
	Warning(format string, a ...any)
	Error(format string, a ...any)
}

type Level uint

const (
	LevelDebug Level = 1 << iota
	LevelInfo
	LevelWarning
	LevelError
)

// Above returns the mask enabling threshold and every more severe level.
func Above(threshold Level) Level {
	if threshold == 0 {
		threshold = LevelDebug
	}
	var out Level
	for l := threshold; l <= LevelError; l <<= 1 {
		out |= l
	}
	return out
}

var colorDebug = color.New(color.FgCyan).SprintFunc()
var colorInfo = color.New(color.FgGreen).SprintFunc()
var colorWarning = color.New(color.FgHiYellow).SprintFunc()
var colorError = color.New(color.FgRed).SprintFunc()

type writerLogger struct {
	mu     sync.Mutex
	out    io.Writer
	levels Level
	now    func() time.Time
}

// New returns a Logger writing colored, timestamped lines to out for the
// enabled levels.
func New(out io.Writer, levels Level) Logger {
	return &writerLogger{out: out, levels: levels, now: time.Now}
}

func (l *writerLogger) Debug(format string, a ...any) {
	l.write(LevelDebug, colorDebug("DEBUG"), 5, format, a...)
}

func (l *writerLogger) Info(format string, a ...any) {
	l.write(LevelInfo, colorInfo("INFO"), 4, format, a...)
}

func (l *writerLogger) Warning(format string, a ...any) {
	l.write(LevelWarning, colorWarning("WARNING"), 7, format, a...)
}

func (l *writerLogger) Error(format string, a ...any) {
	l.write(LevelError, colorError("ERROR"), 5, format, a...)
}

func (l *writerLogger) write(level Level, label string, labelLen int, format string, a ...any) {
	if l.levels&level == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s [%s] %s\n", spanFill(label, labelLen, 8), l.now().Format(time.DateTime), fmt.Sprintf(format, a...))
}

func spanFill(input string, inputLen, num int) string {
	if pad := num - inputLen; pad > 0 {
		return input + strings.Repeat(" ", pad)
	}
	return input
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)   {}
func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Error(string, ...any)   {}

// Nop discards everything.
func Nop() Logger { return nopLogger{} }
