// Package logging builds the process logger. Records go to a rotating file so the terminal
// UI keeps stdout and stderr to itself.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/orandin/lumberjackrus"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Level string
	// File enables the rotating JSON log. Empty disables it.
	File string
	// Console receives text output. Nil discards it.
	Console io.Writer
}

func New(opts Options) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if opts.Console != nil {
		log.SetOutput(opts.Console)
	} else {
		log.SetOutput(io.Discard)
	}

	file := strings.TrimSpace(opts.File)
	if file == "" {
		return log, nil
	}
	hook, err := lumberjackrus.NewHook(
		&lumberjackrus.LogFile{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   false,
			LocalTime:  false,
		},
		level,
		&logrus.JSONFormatter{},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", file, err)
	}
	log.AddHook(hook)
	return log, nil
}

// Stderr is the logger used by headless commands when the configured one cannot be built.
func Stderr(level string) *logrus.Logger {
	log, _ := New(Options{Level: level, Console: os.Stderr})
	return log
}
