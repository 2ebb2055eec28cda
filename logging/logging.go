// Copyright 2026 The Decoupled Resolver Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides the structured logging surface used by the
// resolver, routes feed, and HTTP operations.
//
// It is a thin configuration layer over log/slog: libraries in this module
// accept the Logger interface, applications construct a Config with
// functional options and hand out its logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the interface consumed throughout this module. *slog.Logger and
// *Config both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Level aliases slog.Level.
type Level = slog.Level

// Log levels re-exported for option callers.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// HandlerType selects the output encoding.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs (default).
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
)

// Config holds a constructed logger plus the options that built it.
type Config struct {
	handlerType HandlerType
	output      io.Writer
	level       Level
	serviceName string
	addSource   bool

	logger *slog.Logger
}

// Option is a functional option for configuring the logger.
type Option func(*Config)

// WithJSONHandler selects JSON output (the default).
func WithJSONHandler() Option {
	return func(c *Config) { c.handlerType = JSONHandler }
}

// WithTextHandler selects key=value text output.
func WithTextHandler() Option {
	return func(c *Config) { c.handlerType = TextHandler }
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Config) { c.output = w }
}

// WithLevel sets the minimum log level.
func WithLevel(l Level) Option {
	return func(c *Config) { c.level = l }
}

// WithServiceName sets the service attribute attached to every entry.
func WithServiceName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.serviceName = name
		}
	}
}

// WithSource enables source code locations in log entries.
func WithSource(enabled bool) Option {
	return func(c *Config) { c.addSource = enabled }
}

// New creates a logging configuration.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		handlerType: JSONHandler,
		output:      os.Stdout,
		level:       LevelInfo,
		serviceName: "resolver",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	hopts := &slog.HandlerOptions{Level: c.level, AddSource: c.addSource}
	var handler slog.Handler
	switch c.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(c.output, hopts)
	case TextHandler:
		handler = slog.NewTextHandler(c.output, hopts)
	default:
		return nil, fmt.Errorf("unknown handler type %q", c.handlerType)
	}

	c.logger = slog.New(handler).With("service", c.serviceName)
	return c, nil
}

// MustNew creates a logging configuration or panics on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return c
}

// Logger returns the underlying slog.Logger.
func (c *Config) Logger() *slog.Logger { return c.logger }

// Debug logs a debug message with structured attributes.
func (c *Config) Debug(msg string, args ...any) { c.logger.Debug(msg, args...) }

// Info logs an informational message with structured attributes.
func (c *Config) Info(msg string, args ...any) { c.logger.Info(msg, args...) }

// Warn logs a warning message with structured attributes.
func (c *Config) Warn(msg string, args ...any) { c.logger.Warn(msg, args...) }

// Error logs an error message with structured attributes.
func (c *Config) Error(msg string, args ...any) { c.logger.Error(msg, args...) }

// Discard returns a logger that drops everything. Used as the default in
// constructors when the caller supplies no logger.
func Discard() Logger {
	return MustNew(WithOutput(io.Discard))
}
