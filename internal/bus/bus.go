// Package bus carries user-facing progress events out of the core. Events are
// fire-and-forget; a nil or Nop bus is valid.
package bus

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event pointers emitted by the core.
const (
	PlanStart        = "refactor.plan.start"
	PlanDone         = "refactor.plan.done"
	CommitSuccess    = "refactor.commit.success"
	CommitFailed     = "refactor.commit.failed"
	IntegrityWarning = "index.integrity.warning"
	IndexDone        = "index.build.done"
)

type Params map[string]any

type MessageBus interface {
	Info(pointer string, params Params)
	Success(pointer string, params Params)
	Warning(pointer string, params Params)
	Error(pointer string, params Params)
}

type Nop struct{}

func (Nop) Info(string, Params)    {}
func (Nop) Success(string, Params) {}
func (Nop) Warning(string, Params) {}
func (Nop) Error(string, Params)   {}

// OrNop returns b, or Nop when b is nil.
func OrNop(b MessageBus) MessageBus {
	if b == nil {
		return Nop{}
	}
	return b
}

// Log writes one "level pointer k=v ..." line per event.
type Log struct {
	Logger *log.Logger
}

func NewLog(w io.Writer) *Log {
	return &Log{Logger: log.New(w, "", 0)}
}

func (l *Log) Info(p string, params Params)    { l.emit(LevelInfo, p, params) }
func (l *Log) Success(p string, params Params) { l.emit(LevelSuccess, p, params) }
func (l *Log) Warning(p string, params Params) { l.emit(LevelWarning, p, params) }
func (l *Log) Error(p string, params Params)   { l.emit(LevelError, p, params) }

func (l *Log) emit(level Level, pointer string, params Params) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("%s %s%s", level, pointer, formatParams(params))
}

func formatParams(params Params) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, params[k])
	}
	return b.String()
}

// Styled renders events for a terminal.
type Styled struct {
	mu  sync.Mutex
	out io.Writer

	levels map[Level]lipgloss.Style
	params lipgloss.Style
}

func NewStyled(w io.Writer) *Styled {
	badge := lipgloss.NewStyle().Bold(true).Width(8)
	return &Styled{
		out: w,
		levels: map[Level]lipgloss.Style{
			LevelInfo:    badge.Foreground(lipgloss.Color("#4D96FF")),
			LevelSuccess: badge.Foreground(lipgloss.Color("#6BCB77")),
			LevelWarning: badge.Foreground(lipgloss.Color("#FFD93D")),
			LevelError:   badge.Foreground(lipgloss.Color("#FF6B6B")),
		},
		params: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

func (s *Styled) Info(p string, params Params)    { s.emit(LevelInfo, p, params) }
func (s *Styled) Success(p string, params Params) { s.emit(LevelSuccess, p, params) }
func (s *Styled) Warning(p string, params Params) { s.emit(LevelWarning, p, params) }
func (s *Styled) Error(p string, params Params)   { s.emit(LevelError, p, params) }

func (s *Styled) emit(level Level, pointer string, params Params) {
	line := s.levels[level].Render(string(level)) + " " + pointer
	if extra := formatParams(params); extra != "" {
		line += s.params.Render(extra)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

type Event struct {
	Level   Level
	Pointer string
	Params  Params
}

func (r *Recorder) Info(p string, params Params)    { r.add(LevelInfo, p, params) }
func (r *Recorder) Success(p string, params Params) { r.add(LevelSuccess, p, params) }
func (r *Recorder) Warning(p string, params Params) { r.add(LevelWarning, p, params) }
func (r *Recorder) Error(p string, params Params)   { r.add(LevelError, p, params) }

func (r *Recorder) add(level Level, pointer string, params Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Event{Level: level, Pointer: pointer, Params: params})
}

// Pointers lists recorded pointers in emission order.
func (r *Recorder) Pointers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Pointer)
	}
	return out
}
