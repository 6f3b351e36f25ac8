// Package logging provides leveled console output for talentkit pipelines.
// Lines are human-oriented; the vector index is the durable record of what
// was ingested.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config string such as "debug" into a Level.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if level == "" {
		return LevelInfo, nil
	}
	if _, ok := levelPriority[level]; !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Logger writes structured lines of the form
// LEVEL TIMESTAMP [component] message key=value ...
type Logger struct {
	mu        *sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// New creates a Logger writing INFO and above to stderr.
func New() *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   os.Stderr,
		minLevel: LevelInfo,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := New()
	l.output = io.Discard
	return l
}

// WithComponent returns a logger sharing this logger's output under a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields renders fields as key=value pairs in key order.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}
	l.output.Write([]byte(line))
}

// --- Pipeline events ---

// IngestStart logs the start of a resume ingestion.
func (l *Logger) IngestStart(path string) {
	l.Debug("ingest_start", map[string]interface{}{
		"path": path,
	})
}

// IngestComplete logs a stored resume.
func (l *Logger) IngestComplete(id string, chars int, duration time.Duration) {
	l.Info("ingest_complete", map[string]interface{}{
		"id":       id,
		"chars":    chars,
		"duration": duration.String(),
	})
}

// IngestFailed logs a failed ingestion with its error code.
func (l *Logger) IngestFailed(path string, err error) {
	l.Error("ingest_failed", map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})
}

// KeywordIndexStale logs a vector write that the keyword index missed.
func (l *Logger) KeywordIndexStale(id string, err error) {
	l.Warn("keyword_index_stale", map[string]interface{}{
		"id":    id,
		"error": err.Error(),
	})
}

// EvaluationAppended logs an evaluation attached to a stored resume.
func (l *Logger) EvaluationAppended(id string) {
	l.Info("evaluation_appended", map[string]interface{}{
		"id": id,
	})
}

// QueryComplete logs a similarity search.
func (l *Logger) QueryComplete(topK, results int, duration time.Duration) {
	l.Info("query_complete", map[string]interface{}{
		"top_k":    topK,
		"results":  results,
		"duration": duration.String(),
	})
}

// GenerationFailed logs a failed call to the text generator.
func (l *Logger) GenerationFailed(stage string, err error) {
	l.Warn("generation_failed", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

// StoreOpened logs the vector index location.
func (l *Logger) StoreOpened(path, collection string, count int) {
	l.Info("store_opened", map[string]interface{}{
		"path":       path,
		"collection": collection,
		"documents":  count,
	})
}
