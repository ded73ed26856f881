// Package nlog is the mesh's internal structured logger: timestamped,
// depth-aware caller info, three severities. It owns no file rotation, no
// log directory, and no config loader - the mesh core is deliberately
// silent on persistence and configuration (see spec.md section 1), so
// nlog writes to an *os.File the embedding program supplies (stderr by
// default) and nothing else.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

var (
	mu  sync.Mutex
	out = os.Stderr

	// MinSeverity suppresses any line below it; default logs everything.
	MinSeverity = sevInfo
)

// SetOutput redirects all subsequent log lines. Passing nil restores stderr.
func SetOutput(w *os.File) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

func Infof(format string, args ...any)    { logf(sevInfo, 1, format, args...) }
func Infoln(args ...any)                  { logln(sevInfo, 1, args...) }
func Warningf(format string, args ...any) { logf(sevWarn, 1, format, args...) }
func Warningln(args ...any)               { logln(sevWarn, 1, args...) }
func Errorf(format string, args ...any)   { logf(sevErr, 1, format, args...) }
func Errorln(args ...any)                 { logln(sevErr, 1, args...) }

// InfoDepth/ErrorDepth let a thin wrapper (e.g. per-package nlog shims)
// report the caller's caller as the source line.
func InfoDepth(depth int, args ...any)  { logln(sevInfo, depth+1, args...) }
func ErrorDepth(depth int, args ...any) { logln(sevErr, depth+1, args...) }

func logf(sev severity, depth int, format string, args ...any) {
	write(sev, depth+1, fmt.Sprintf(format, args...))
}

func logln(sev severity, depth int, args ...any) {
	write(sev, depth+1, fmt.Sprintln(args...))
}

func write(sev severity, depth int, msg string) {
	if sev < MinSeverity {
		return
	}
	_, fn, ln, ok := runtime.Caller(depth + 1)
	if ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
	} else {
		fn, ln = "???", 0
	}
	msg = strings.TrimSuffix(msg, "\n")
	line := fmt.Sprintf("%c %s %s:%d %s\n", sevChar[sev], time.Now().Format("15:04:05.000000"), fn, ln, msg)

	mu.Lock()
	out.WriteString(line)
	mu.Unlock()
}
