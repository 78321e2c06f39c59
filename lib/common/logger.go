package common

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Log output
// --------------------------------------------------------------------------

// logOutput is shared by all loggers, so lines of concurrent collectors never interleave
type logOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *logOutput) write(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = io.WriteString(o.w, line)
}

func (o *logOutput) set(w io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.w = w
}

// stderr keeps the output of the cli commands machine readable
var output = &logOutput{w: os.Stderr}

// SetLogOutput redirects all loggers created by CreateLogger to w
func SetLogOutput(w io.Writer) {
	output.set(w)
}

// --------------------------------------------------------------------------
// Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// dGCLogger prefixes every line with time, level and logger name.
// The level can be changed while collectors are logging from their goroutines.
type dGCLogger struct {
	name  string
	level atomic.Int32
	out   *logOutput
}

func (l *dGCLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *dGCLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *dGCLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *dGCLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *dGCLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *dGCLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

// Panicf always panics, the level only decides whether the message is logged first
func (l *dGCLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if l.enabled(logger.CRITICAL) {
		l.log("PANIC", "%s", message)
	}
	panic(message)
}

func (l *dGCLogger) log(levelStr string, format string, args ...interface{}) {
	line := fmt.Sprintf("%s %-5s | %-10s | %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"), levelStr, l.name, fmt.Sprintf(format, args...))
	l.out.write(line)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	return newLogger(pkgName, output)
}

func newLogger(pkgName string, out *logOutput) *dGCLogger {
	l := &dGCLogger{name: pkgName, out: out}
	l.level.Store(int32(logger.INFO))
	return l
}

// --------------------------------------------------------------------------
// Level parsing
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// LogLevels is a parsed level spec: a default level plus levels for single loggers
type LogLevels struct {
	Default   logger.LogLevel
	Overrides map[string]logger.LogLevel
}

// Level returns the level of the named logger
func (l LogLevels) Level(name string) logger.LogLevel {
	if level, ok := l.Overrides[name]; ok {
		return level
	}
	return l.Default
}

// Names returns the names of all loggers with an override, sorted
func (l LogLevels) Names() []string {
	names := make([]string, 0, len(l.Overrides))
	for name := range l.Overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseLogLevels parses a comma separated level spec like "warn,gc/events=debug".
// Entries without a logger name set the default level (info if none is given),
// the last one wins.
func ParseLogLevels(spec string) (LogLevels, error) {
	levels := LogLevels{Default: logger.INFO, Overrides: map[string]logger.LogLevel{}}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, levelStr, named := strings.Cut(entry, "=")
		if !named {
			level, err := ParseLogLevel(entry)
			if err != nil {
				return LogLevels{}, err
			}
			levels.Default = level
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return LogLevels{}, fmt.Errorf("invalid log level entry %q: missing logger name", entry)
		}
		level, err := ParseLogLevel(levelStr)
		if err != nil {
			return LogLevels{}, fmt.Errorf("logger %s: %w", name, err)
		}
		levels.Overrides[name] = level
	}

	return levels, nil
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// Loggers lists the names of all loggers used by dGC
var Loggers = []string{"gc", "gc/events", "cmd"}

// dragonboat panics if the factory is set twice
var factoryOnce sync.Once

// InitLoggers installs the custom logger factory and applies a level spec (see ParseLogLevels)
// to all dGC loggers and to every logger it names. Later calls only change levels.
// Must be called before the first collector is created, loggers used earlier keep the default format.
func InitLoggers(spec string) error {
	levels, err := ParseLogLevels(spec)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	for _, name := range Loggers {
		logger.GetLogger(name).SetLevel(levels.Level(name))
	}
	for _, name := range levels.Names() {
		logger.GetLogger(name).SetLevel(levels.Level(name))
	}
	return nil
}
