package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"
)

const (
	defaultFlushEvery = 2 * time.Second
	queueSize         = 1024
	closeTimeout      = 10 * time.Second
)

var ErrClosed = errors.New("logsink: handler closed")

// Handler is an slog.Handler that batches JSON lines and appends them every FlushEvery.
type Handler struct {
	sink   *sink
	attrs  []scopedAttr
	groups []string
	level  slog.Leveler
}

// scopedAttr remembers which groups were open when the attr was added.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

// sink is shared by every Handler derived through WithAttrs/WithGroup. Senders hold mu
// for reading; Close takes it for writing so no send lands after the final drain.
type sink struct {
	mu     sync.RWMutex
	closed bool
	out    appender
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	every  time.Duration
}

func newHandler(out appender, every time.Duration) *Handler {
	if every <= 0 {
		every = defaultFlushEvery
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &sink{
		out:    out,
		ch:     make(chan []byte, queueSize),
		ctx:    ctx,
		cancel: cancel,
		every:  every,
	}
	s.wg.Add(1)
	go s.loop()
	return &Handler{sink: s, level: slog.LevelInfo}
}

// WithLevel returns a handler that drops records below level.
func (h *Handler) WithLevel(level slog.Leveler) *Handler {
	h2 := *h
	h2.level = level
	return &h2
}

func (h *Handler) Close() error {
	h.sink.mu.Lock()
	h.sink.closed = true
	h.sink.mu.Unlock()
	h.sink.cancel()
	h.sink.wg.Wait()
	return nil
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ev := map[string]any{
		"ts":    ts.UTC().Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}

	for _, sa := range h.attrs {
		addAttr(groupMap(ev, sa.groups), sa.attr)
	}
	target := groupMap(ev, h.groups)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return err
	}

	h.sink.mu.RLock()
	defer h.sink.mu.RUnlock()
	if h.sink.closed {
		return ErrClosed
	}
	// the loop keeps draining until Close holds mu, so a full queue only delays this
	h.sink.ch <- b.Bytes()
	return nil
}

func groupMap(root map[string]any, groups []string) map[string]any {
	m := root
	for _, g := range groups {
		next, ok := m[g].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[g] = next
		}
		m = next
	}
	return m
}

func addAttr(m map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := map[string]any{}
		for _, ga := range a.Value.Group() {
			addAttr(group, ga)
		}
		if a.Key == "" {
			for k, v := range group {
				m[k] = v
			}
			return
		}
		m[a.Key] = group
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			m[a.Key] = err.Error()
			return
		}
		m[a.Key] = a.Value.Any()
	default:
		m[a.Key] = a.Value.Any()
	}
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, scopedAttr{groups: h.groups, attr: a})
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(slices.Clone(h.groups), name)
	return &h2
}

func (s *sink) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	var buf []byte
	flush := func(ctx context.Context) {
		if len(buf) == 0 {
			return
		}
		if err := s.out.Append(ctx, buf); err != nil {
			// slog would loop back here
			fmt.Fprintf(os.Stderr, "logsink: failed to append %d bytes: %v\n", len(buf), err)
		}
		buf = buf[:0]
	}

	for {
		select {
		case <-s.ctx.Done():
			for {
				select {
				case line := <-s.ch:
					buf = append(buf, line...)
					continue
				default:
				}
				break
			}
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			flush(ctx)
			cancel()
			return
		case line := <-s.ch:
			buf = append(buf, line...)
		case <-ticker.C:
			flush(s.ctx)
		}
	}
}
