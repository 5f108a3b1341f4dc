// Copyright 2026 The streamlet Authors
// This file is part of the streamlet library.
//
// The streamlet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The streamlet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the streamlet library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the module-scoped, key/value structured logger
// used throughout the node: a small registry of module names, a Logger
// interface with Trace/Debug/Info/Warn/Error/Crit, and a colorized
// terminal handler built on go-stack (caller capture) and
// go-colorable/fatih-color (TTY output).
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Module identifies the subsystem a logger was created for. Kept as a
// string rather than an enum so new packages never need a central edit.
type Module string

const (
	ChainModule     Module = "CHAIN"
	MessageModule   Module = "MESSAGE"
	P2PModule       Module = "P2P"
	ConsensusModule Module = "CONSENSUS"
	NodeModule      Module = "NODE"
	ConfigModule    Module = "CONFIG"
	CmdModule       Module = "CMD"
	MetricsModule   Module = "METRICS"
)

// Logger is the interface every package-level `logger` variable satisfies.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

type level int

const (
	lvlCrit level = iota
	lvlError
	lvlWarn
	lvlInfo
	lvlDebug
	lvlTrace
)

var levelNames = map[level]string{
	lvlCrit:  "CRIT",
	lvlError: "ERROR",
	lvlWarn:  "WARN",
	lvlInfo:  "INFO",
	lvlDebug: "DEBUG",
	lvlTrace: "TRACE",
}

var levelColors = map[level]color.Attribute{
	lvlCrit:  color.FgMagenta,
	lvlError: color.FgRed,
	lvlWarn:  color.FgYellow,
	lvlInfo:  color.FgGreen,
	lvlDebug: color.FgCyan,
	lvlTrace: color.FgWhite,
}

var (
	mu        sync.Mutex
	out       io.Writer = colorable.NewColorableStdout()
	minLevel            = lvlInfo
)

// SetOutput redirects where every module logger writes; tests use this to
// capture log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the minimum level emitted, by name (crit..trace).
// Unrecognized names leave the level unchanged.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(name) {
	case "crit":
		minLevel = lvlCrit
	case "error":
		minLevel = lvlError
	case "warn":
		minLevel = lvlWarn
	case "info":
		minLevel = lvlInfo
	case "debug":
		minLevel = lvlDebug
	case "trace":
		minLevel = lvlTrace
	}
}

type moduleLogger struct {
	module Module
	ctx    []interface{}
}

// NewModuleLogger returns the logger bound to a given subsystem. Each
// package creates one at init time into a package-level `logger` var.
func NewModuleLogger(m Module) Logger {
	return &moduleLogger{module: m}
}

// New returns a child logger carrying additional persistent key/value
// context on every line it emits.
func (l *moduleLogger) New(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &moduleLogger{module: l.module, ctx: merged}
}

func (l *moduleLogger) Trace(msg string, ctx ...interface{}) { l.write(lvlTrace, msg, ctx) }
func (l *moduleLogger) Debug(msg string, ctx ...interface{}) { l.write(lvlDebug, msg, ctx) }
func (l *moduleLogger) Info(msg string, ctx ...interface{})  { l.write(lvlInfo, msg, ctx) }
func (l *moduleLogger) Warn(msg string, ctx ...interface{})  { l.write(lvlWarn, msg, ctx) }
func (l *moduleLogger) Error(msg string, ctx ...interface{}) { l.write(lvlError, msg, ctx) }
func (l *moduleLogger) Crit(msg string, ctx ...interface{})  { l.write(lvlCrit, msg, ctx) }

func (l *moduleLogger) write(lv level, msg string, extra []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lv > minLevel {
		return
	}

	var b strings.Builder
	ts := time.Now().Format("01-02|15:04:05.000")
	c := color.New(levelColors[lv]).SprintFunc()
	fmt.Fprintf(&b, "%s[%s] [%s] %s", c(levelNames[lv][:4]), ts, l.module, msg)

	ctx := make([]interface{}, 0, len(l.ctx)+len(extra))
	ctx = append(ctx, l.ctx...)
	ctx = append(ctx, extra...)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(&b, " %v=%v", ctx[i], ctx[i+1])
	}
	if lv <= lvlError {
		call := stack.Caller(2)
		fmt.Fprintf(&b, " caller=%+v", call)
	}
	fmt.Fprintln(out, b.String())

	if lv == lvlCrit {
		os.Exit(1)
	}
}
