package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// New returns a text logger tagged with the given service prefix.
func New(prefix string, level slog.Leveler, w io.Writer) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", prefix)
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.ToUpper(s)))
	return l, err
}

type multiHandler struct {
	handlers []slog.Handler
}

// Multi fans each record out to every handler that accepts its level.
func Multi(handlers ...slog.Handler) slog.Handler {
	return &multiHandler{handlers}
}

func (m *multiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	res := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		res[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{res}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	res := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		res[i] = h.WithGroup(name)
	}
	return &multiHandler{res}
}

var _ slog.Handler = &multiHandler{}
