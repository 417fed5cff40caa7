// Package logger holds the process-wide charmbracelet/log logger. Records go
// to a rotating file under the config directory, and also to stderr in debug
// mode. Calls before Init are dropped.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/weekplan/internal/constants"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger

	logPath string
)

type Config struct {
	Debug     bool
	ConfigDir string
	// Stderr receives a copy of every record in debug mode. Defaults to os.Stderr.
	Stderr io.Writer
}

// Init creates the log directory and replaces the global logger.
func Init(cfg Config) error {
	dir := filepath.Join(cfg.ConfigDir, constants.LogDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, constants.AppName+".log")
	var out io.Writer = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   true,
	}

	// The TUI owns the terminal, so stderr is only added in debug mode.
	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		out = io.MultiWriter(stderr, out)
	}

	Logger = log.NewWithOptions(out, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})
	logPath = path
	return nil
}

// Path returns the active log file, or "" before Init.
func Path() string {
	if Logger == nil {
		return ""
	}
	return logPath
}

func emit(fn func(*log.Logger, interface{}, ...interface{}), msg string, keyvals []interface{}) {
	if Logger == nil {
		return
	}
	fn(Logger, msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	emit((*log.Logger).Debug, msg, keyvals)
}

func Info(msg string, keyvals ...interface{}) {
	emit((*log.Logger).Info, msg, keyvals)
}

func Warn(msg string, keyvals ...interface{}) {
	emit((*log.Logger).Warn, msg, keyvals)
}

func Error(msg string, keyvals ...interface{}) {
	emit((*log.Logger).Error, msg, keyvals)
}
