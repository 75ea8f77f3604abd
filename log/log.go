// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package log is the leveled logger shared by every netmet-geoloc package.
// Callers embedding the library can route output elsewhere with SetLogger.
package log

import (
	"fmt"
	"log"
	"sync/atomic"
)

// LogLevel orders verbosity from LevelError (quietest) to LevelTrace.
type LogLevel int32

const (
	LevelError LogLevel = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = map[string]LogLevel{
	"error": LevelError,
	"warn":  LevelWarn,
	"info":  LevelInfo,
	"debug": LevelDebug,
	"trace": LevelTrace,
}

// ParseLogLevel maps a lowercase level name to its LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	level, ok := levelNames[s]
	if !ok {
		return 0, fmt.Errorf("invalid log level %q (expected one of error, warn, info, debug, trace)", s)
	}
	return level, nil
}

func (l LogLevel) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("LogLevel(%d)", int32(l))
}

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLogLevel sets the most verbose level that is still emitted.
func SetLogLevel(l LogLevel) {
	currentLevel.Store(int32(l))
}

// GetLogLevel returns the active level.
func GetLogLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

func enabled(l LogLevel) bool {
	return l <= GetLogLevel()
}

type Logger struct {
	Tracef func(format string, args ...interface{})
	Infof  func(format string, args ...interface{})
	Debugf func(format string, args ...interface{})
	Warnf  func(format string, args ...interface{}) error
	Errorf func(format string, args ...interface{}) error
}

var logger = Logger{
	Tracef: defaultTracef,
	Infof:  defaultInfof,
	Debugf: defaultDebugf,
	Warnf:  defaultWarnf,
	Errorf: defaultErrorf,
}

func SetLogger(l Logger) {
	logger = l
}

func Tracef(format string, args ...interface{}) {
	if logger.Tracef != nil && enabled(LevelTrace) {
		logger.Tracef(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if logger.Infof != nil && enabled(LevelInfo) {
		logger.Infof(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if logger.Debugf != nil && enabled(LevelDebug) {
		logger.Debugf(format, args...)
	}
}

// Warnf logs at warn level and returns the formatted message as an error so
// call sites can log and return in one statement.
func Warnf(format string, args ...interface{}) error {
	if logger.Warnf != nil && enabled(LevelWarn) {
		return logger.Warnf(format, args...)
	}
	return fmt.Errorf(format, args...)
}

func Errorf(format string, args ...interface{}) error {
	if logger.Errorf != nil && enabled(LevelError) {
		return logger.Errorf(format, args...)
	}
	return fmt.Errorf(format, args...)
}

var (
	defaultTracef = func(format string, args ...interface{}) {
		log.Printf("[TRACE] "+format, args...)
	}

	defaultInfof = func(format string, args ...interface{}) {
		log.Printf("[INFO] "+format, args...)
	}

	defaultDebugf = func(format string, args ...interface{}) {
		log.Printf("[DEBUG] "+format, args...)
	}

	defaultErrorf = func(format string, args ...interface{}) error {
		log.Printf("[ERROR] "+format, args...)
		return fmt.Errorf(format, args...)
	}

	defaultWarnf = func(format string, args ...interface{}) error {
		log.Printf("[WARN] "+format, args...)
		return fmt.Errorf(format, args...)
	}
)
