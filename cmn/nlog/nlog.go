// Package nlog is a small leveled logger used throughout the engine.
// It exists so call sites read the same way the teacher's internal
// logger does (nlog.Infoln, nlog.Warningln, level-gated nlog.V(n))
// without dragging in a full logging framework for a handful of lines
// per task.
package nlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

var (
	std   = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	level int32 // verbosity threshold; V(n) fires when n <= level
)

// SetLevel sets the verbosity threshold used by V(n).
func SetLevel(v int) { atomic.StoreInt32(&level, int32(v)) }

// V reports whether verbosity n is currently enabled, mirroring the
// teacher's config.FastV(n, module) gate but without a per-module axis
// (this repo has exactly one logging module: the reconstruction engine).
func V(n int) bool { return int32(n) <= atomic.LoadInt32(&level) }

func Infoln(args ...interface{})                { std.Output(2, "I "+fmt.Sprintln(args...)) }
func Infof(format string, args ...interface{})  { std.Output(2, "I "+fmt.Sprintf(format, args...)) }
func Warningln(args ...interface{})             { std.Output(2, "W "+fmt.Sprintln(args...)) }
func Warningf(format string, args ...interface{}) { std.Output(2, "W "+fmt.Sprintf(format, args...)) }
func Errorln(args ...interface{})               { std.Output(2, "E "+fmt.Sprintln(args...)) }
func Errorf(format string, args ...interface{}) { std.Output(2, "E "+fmt.Sprintf(format, args...)) }
