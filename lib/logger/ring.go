package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type ringBuffer struct {
	mtx     sync.Mutex
	entries []string
	next    int
	full    bool
}

// Ring is a slog handler keeping the last records in memory as
// formatted lines, for surfaces that cannot print to a terminal.
type Ring struct {
	buf    *ringBuffer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = &Ring{}

func NewRing(capacity int, level slog.Leveler) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:   &ringBuffer{entries: make([]string, capacity)},
		level: level,
	}
}

func (r *Ring) Enabled(_ context.Context, l slog.Level) bool {
	return l >= r.level.Level()
}

func (r *Ring) Handle(_ context.Context, rec slog.Record) error {
	sb := strings.Builder{}
	sb.WriteString(rec.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(rec.Message)

	prefix := strings.Join(r.groups, ".")
	write := func(a slog.Attr) bool {
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&sb, " %s=%v", key, a.Value.Resolve())
		return true
	}
	for _, a := range r.attrs {
		write(a)
	}
	rec.Attrs(write)

	b := r.buf
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.entries[b.next] = sb.String()
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	return nil
}

func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	cpy := *r
	cpy.attrs = append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &cpy
}

func (r *Ring) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	cpy := *r
	cpy.groups = append(append([]string{}, r.groups...), name)
	return &cpy
}

// Lines returns the retained records, oldest first.
func (r *Ring) Lines() []string {
	b := r.buf
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if !b.full {
		return append([]string{}, b.entries[:b.next]...)
	}
	res := make([]string, 0, len(b.entries))
	res = append(res, b.entries[b.next:]...)
	return append(res, b.entries[:b.next]...)
}

// Last returns the most recent record, or "" when nothing was logged.
func (r *Ring) Last() string {
	b := r.buf
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if !b.full && b.next == 0 {
		return ""
	}
	i := (b.next - 1 + len(b.entries)) % len(b.entries)
	return b.entries[i]
}
