// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides the process-wide zerolog logger.
//
// Logs always go to stderr by default; stdout is reserved for NDJSON
// output. Format "auto" picks the console writer when stderr is a
// terminal and JSON otherwise.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Format values accepted by Options.Format.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures the logger
type Options struct {
	Level      string
	Format     string
	Component  string
	Writer     io.Writer
	WithCaller bool
}

// FromEnv builds Options from SIRSEER_LOG_LEVEL and SIRSEER_LOG_FORMAT.
func FromEnv() Options {
	return Options{
		Level:  envOr("SIRSEER_LOG_LEVEL", "info"),
		Format: envOr("SIRSEER_LOG_FORMAT", FormatAuto),
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v)
	}
	return fallback
}

var (
	globals sync.Once
	root    atomic.Pointer[zerolog.Logger]
)

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

// Get returns the process-wide root logger. Before Init it is built from
// the environment.
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	setGlobals()
	l := New(FromEnv())
	root.CompareAndSwap(nil, &l)
	return root.Load()
}

// Init installs the root logger built from opt, replacing any previous one.
// Loggers obtained from Named before the call keep their old sink.
func Init(opt Options) {
	setGlobals()
	l := New(opt)
	root.Store(&l)
}

func setGlobals() {
	globals.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})
}

// New builds a standalone logger without touching the root logger.
func New(opt Options) Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}

	if useConsole(opt.Format, w) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}

	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	return log
}

// Named returns a child of the root logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}

func useConsole(format string, w io.Writer) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		return true
	case FormatJSON:
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// parseLevel supports string-only levels
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled", "off", "none":
		return true
	}
	return false
}

// ValidFormat reports whether s names a supported format.
func ValidFormat(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case FormatAuto, FormatConsole, FormatJSON:
		return true
	}
	return false
}
