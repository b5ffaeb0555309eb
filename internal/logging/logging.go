// Package logging owns the process logger. The level, format and file
// output can change at runtime, and loggers already derived with With or
// WithGroup pick up the change.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// DefaultConfig returns JSON output at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "json",
		FileMaxSizeMB:  100,
		FileMaxFiles:   3,
		FileMaxAgeDays: 30,
	}
}

// String returns a human-readable summary of the config.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// root is the handler slot shared by every logger the Manager hands out.
type root struct {
	gen     atomic.Uint64
	handler atomic.Pointer[slog.Handler]
}

func (r *root) store(h slog.Handler) {
	r.handler.Store(&h)
	r.gen.Add(1)
}

type derived struct {
	gen     uint64
	handler slog.Handler
}

// switchHandler forwards to the root handler with its own attrs and groups
// replayed on top. The replayed handler is cached until the root changes.
type switchHandler struct {
	root  *root
	chain []func(slog.Handler) slog.Handler
	cache atomic.Pointer[derived]
}

func (s *switchHandler) current() slog.Handler {
	gen := s.root.gen.Load()
	if c := s.cache.Load(); c != nil && c.gen == gen {
		return c.handler
	}
	h := *s.root.handler.Load()
	for _, fn := range s.chain {
		h = fn(h)
	}
	s.cache.Store(&derived{gen: gen, handler: h})
	return h
}

func (s *switchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *switchHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.extend(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s *switchHandler) WithGroup(name string) slog.Handler {
	return s.extend(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *switchHandler) extend(fn func(slog.Handler) slog.Handler) *switchHandler {
	chain := make([]func(slog.Handler) slog.Handler, len(s.chain), len(s.chain)+1)
	copy(chain, s.chain)
	return &switchHandler{root: s.root, chain: append(chain, fn)}
}

// Manager owns the logger lifecycle and supports runtime reconfiguration.
type Manager struct {
	levelVar *slog.LevelVar
	root     *root
	stdout   io.Writer

	mu     sync.Mutex
	config Config
	closer io.Closer
}

// NewManager creates a Manager writing to stdout (and the configured file)
// and returns it with a ready-to-use logger.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	return newManager(cfg, os.Stdout)
}

func newManager(cfg Config, stdout io.Writer) (*Manager, *slog.Logger) {
	m := &Manager{
		levelVar: &slog.LevelVar{},
		root:     &root{},
		stdout:   stdout,
		config:   cfg,
	}
	m.levelVar.Set(ParseLevel(cfg.Level))

	w, closer := m.buildWriter(cfg)
	m.root.store(buildHandler(w, m.levelVar, cfg.Format))
	m.closer = closer

	return m, slog.New(&switchHandler{root: m.root})
}

// Reconfigure applies cfg. A level change is immediate; format or file
// changes rebuild the output handler.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(ParseLevel(cfg.Level))

	old := m.config
	old.Level = cfg.Level
	if old != cfg {
		if m.closer != nil {
			_ = m.closer.Close()
			m.closer = nil
		}
		w, closer := m.buildWriter(cfg)
		m.root.store(buildHandler(w, m.levelVar, cfg.Format))
		m.closer = closer
	}

	m.config = cfg
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file, if any. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

// buildWriter returns stdout, or stdout plus a rotating file when a path is
// configured.
func (m *Manager) buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return m.stdout, nil
	}
	def := DefaultConfig()
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.FileMaxSizeMB, def.FileMaxSizeMB),
		MaxBackups: positiveOr(cfg.FileMaxFiles, def.FileMaxFiles),
		MaxAge:     positiveOr(cfg.FileMaxAgeDays, def.FileMaxAgeDays),
		Compress:   cfg.FileCompress,
	}
	return io.MultiWriter(m.stdout, lj), lj
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
// Matching is case-insensitive and accepts "warning".
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s names an output format.
func ValidFormat(s string) bool {
	switch strings.ToLower(s) {
	case "text", "json":
		return true
	}
	return false
}
