/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.etcd.io/etcd/client/pkg/v3/logutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options are the options for building the daemon logger.
type Options struct {
	// Level is one of debug, info, warn or error.
	Level string

	// File, if set, receives JSON logs in addition to the console. The file
	// is rotated when the logger is built, so every daemon start begins with
	// an empty log.
	File string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated log files kept.
	MaxBackups int

	// Console is where console logs are written. Defaults to stderr.
	Console io.Writer
}

// Logger is a logr.Logger backed by zap, with a Close to flush and release
// the log file.
type Logger struct {
	logr.Logger

	zap  *zap.Logger
	file *lumberjack.Logger
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.zap.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// New builds the daemon logger.
func New(opts Options) (*Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if len(opts.File) == 0 && opts.Console == nil {
		zl, err := logutil.CreateDefaultZapLogger(level)
		if err != nil {
			return nil, err
		}
		return &Logger{Logger: zapr.NewLogger(zl).WithName("crond"), zap: zl}, nil
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	lvl := zap.NewAtomicLevelAt(level)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), lvl),
	}

	var file *lumberjack.Logger
	if len(opts.File) > 0 {
		if err = os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		if err = file.Rotate(); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), lvl))
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	return &Logger{
		Logger: zapr.NewLogger(zl).WithName("crond"),
		zap:    zl,
		file:   file,
	}, nil
}
