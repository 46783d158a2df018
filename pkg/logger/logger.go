// Package logger is the leveled logger shared by the API server and the CLI.
// Each call writes one line, either "<RFC3339> [LEVEL] message" or, with
// SetFormat("json"), a JSON object with time, level and msg.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

var (
	mu     sync.RWMutex
	logger = log.New(os.Stdout, "", 0)
	level  = LevelInfo
	asJSON bool
)

// Init sets the minimum level from its name (case-insensitive). Unknown
// names select info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetFormat selects "json" or plain text output.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	asJSON = strings.EqualFold(strings.TrimSpace(f), "json")
}

// SetOutput redirects log lines to w. The CLI sends them to stderr so that
// command output stays clean.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

type entry struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func emit(l Level, msg string) {
	mu.RLock()
	out, enabled, js := logger, l >= level, asJSON
	mu.RUnlock()
	if !enabled && l != LevelFatal {
		return
	}
	now := time.Now().Format(time.RFC3339)
	msg = strings.TrimRight(msg, "\n")
	if js {
		b, err := json.Marshal(entry{Time: now, Level: levelNames[l], Msg: msg})
		if err == nil {
			out.Print(string(b))
			return
		}
	}
	out.Printf("%s [%s] %s", now, strings.ToUpper(levelNames[l]), msg)
}

func Debugf(format string, v ...interface{}) { emit(LevelDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { emit(LevelInfo, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { emit(LevelWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { emit(LevelError, fmt.Sprintf(format, v...)) }

// Fatalf logs regardless of level and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	emit(LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Println logs at info level.
func Println(v ...interface{}) { emit(LevelInfo, fmt.Sprintln(v...)) }

func Debug(v string) { emit(LevelDebug, v) }
func Info(v string)  { emit(LevelInfo, v) }
func Warn(v string)  { emit(LevelWarn, v) }
func Error(v string) { emit(LevelError, v) }

// LevelString returns the current level name.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return levelNames[level]
}
