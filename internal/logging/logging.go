// Package logging wraps github.com/cihub/seelog the way meekod/broker/log
// wrapped it: a package-level default logger that every package in this
// module logs through, swappable via SetLogger for embedding applications.
package logging

import (
	"github.com/cihub/seelog"
)

var current seelog.LoggerInterface = seelog.Disabled

// SetLogger installs the logger used by every package in this module.
// Call it once during process startup, e.g. with a logger built from a
// seelog XML config file.
func SetLogger(logger seelog.LoggerInterface) {
	if logger == nil {
		logger = seelog.Disabled
	}
	current = logger
}

// Flush flushes the installed logger. Call it before process exit so no
// buffered records are lost.
func Flush() {
	current.Flush()
}

func Debug(v ...interface{})            { current.Debug(v...) }
func Debugf(format string, v ...interface{}) { current.Debugf(format, v...) }
func Info(v ...interface{})             { current.Info(v...) }
func Infof(format string, v ...interface{})  { current.Infof(format, v...) }
func Warn(v ...interface{})             { _ = current.Warn(v...) }
func Warnf(format string, v ...interface{})  { _ = current.Warnf(format, v...) }
func Error(v ...interface{})            { _ = current.Error(v...) }
func Errorf(format string, v ...interface{}) { _ = current.Errorf(format, v...) }
func Critical(v ...interface{})         { _ = current.Critical(v...) }
func Criticalf(format string, v ...interface{}) { _ = current.Criticalf(format, v...) }
