package logger

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Logger interface definition
type Logger interface {
	Err(format string, a ...any)
	Warn(format string, a ...any)
	Info(format string, a ...any)
	Debug(format string, a ...any)
}

// Level orders log severities. Messages below a logger's level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelErr
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelErr:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Nil is a logger that doesn't write any logs
var Nil Logger = nilLogger{}

type nilLogger struct{}

func (nilLogger) Err(string, ...any)   {}
func (nilLogger) Warn(string, ...any)  {}
func (nilLogger) Info(string, ...any)  {}
func (nilLogger) Debug(string, ...any) {}

// Std writes leveled lines through a standard library logger.
type Std struct {
	l     *log.Logger
	level Level
}

// New returns a logger writing to w, dropping anything below level.
func New(w io.Writer, level Level) *Std {
	return &Std{l: log.New(w, "amqpwire ", log.LstdFlags|log.Lmicroseconds), level: level}
}

func (s *Std) output(level Level, format string, a []any) {
	if level < s.level {
		return
	}
	_ = s.l.Output(3, level.String()+" "+fmt.Sprintf(format, a...))
}

func (s *Std) Err(format string, a ...any)   { s.output(LevelErr, format, a) }
func (s *Std) Warn(format string, a ...any)  { s.output(LevelWarn, format, a) }
func (s *Std) Info(format string, a ...any)  { s.output(LevelInfo, format, a) }
func (s *Std) Debug(format string, a ...any) { s.output(LevelDebug, format, a) }

// Entry is a single recorded log line.
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps every entry in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level Level, format string, a []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(format, a...)})
}

func (r *Recorder) Err(format string, a ...any)   { r.add(LevelErr, format, a) }
func (r *Recorder) Warn(format string, a ...any)  { r.add(LevelWarn, format, a) }
func (r *Recorder) Info(format string, a ...any)  { r.add(LevelInfo, format, a) }
func (r *Recorder) Debug(format string, a ...any) { r.add(LevelDebug, format, a) }

// Entries returns a copy of the entries at or above level.
func (r *Recorder) Entries(level Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}
