package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ComponentKey is the attribute key components scope their loggers with.
const ComponentKey = "component"

// levels is shared by a ComponentFilterHandler and all handlers derived
// from it through WithAttrs/WithGroup.
type levels struct {
	mu        sync.RWMutex
	byName    map[string]slog.Level
	defaultLv slog.Level
}

func (l *levels) forComponent(name string) slog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if lv, ok := l.byName[name]; ok {
		return lv
	}
	return l.defaultLv
}

// minimum returns the lowest level any component may log at.
func (l *levels) minimum() slog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lowest := l.defaultLv
	for _, lv := range l.byName {
		if lv < lowest {
			lowest = lv
		}
	}
	return lowest
}

// ComponentFilterHandler filters records by a per-component minimum level.
// The component is taken from the "component" attribute, either attached
// with Logger.With or passed on the record. Records without a component use
// the default level. Levels can be changed at runtime.
type ComponentFilterHandler struct {
	inner     slog.Handler
	levels    *levels
	component string // from WithAttrs, "" if unset
}

// NewComponentFilterHandler wraps inner with per-component level filtering.
func NewComponentFilterHandler(inner slog.Handler, defaultLevel slog.Level) *ComponentFilterHandler {
	return &ComponentFilterHandler{
		inner: inner,
		levels: &levels{
			byName:    make(map[string]slog.Level),
			defaultLv: defaultLevel,
		},
	}
}

// SetLevel sets the minimum level for a component.
func (h *ComponentFilterHandler) SetLevel(component string, level slog.Level) {
	h.levels.mu.Lock()
	h.levels.byName[component] = level
	h.levels.mu.Unlock()
}

// ClearLevel removes a component override.
func (h *ComponentFilterHandler) ClearLevel(component string) {
	h.levels.mu.Lock()
	delete(h.levels.byName, component)
	h.levels.mu.Unlock()
}

// Level returns the effective level for a component.
func (h *ComponentFilterHandler) Level(component string) slog.Level {
	return h.levels.forComponent(component)
}

// DefaultLevel returns the level used for components without an override.
func (h *ComponentFilterHandler) DefaultLevel() slog.Level {
	h.levels.mu.RLock()
	defer h.levels.mu.RUnlock()
	return h.levels.defaultLv
}

// SetDefaultLevel changes the level used for components without an override.
func (h *ComponentFilterHandler) SetDefaultLevel(level slog.Level) {
	h.levels.mu.Lock()
	h.levels.defaultLv = level
	h.levels.mu.Unlock()
}

// Enabled reports whether a record at level could pass. When the component
// is not known yet (it may arrive on the record), the lowest configured level
// is used and Handle makes the final decision.
func (h *ComponentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.component != "" {
		if level < h.levels.forComponent(h.component) {
			return false
		}
	} else if level < h.levels.minimum() {
		return false
	}
	return h.inner == nil || h.inner.Enabled(ctx, level)
}

func (h *ComponentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == ComponentKey {
				component = a.Value.String()
				return false
			}
			return true
		})
	}
	if r.Level < h.levels.forComponent(component) {
		return nil
	}
	if h.inner == nil {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *ComponentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == ComponentKey {
			component = a.Value.String()
		}
	}
	var inner slog.Handler
	if h.inner != nil {
		inner = h.inner.WithAttrs(attrs)
	}
	return &ComponentFilterHandler{inner: inner, levels: h.levels, component: component}
}

func (h *ComponentFilterHandler) WithGroup(name string) slog.Handler {
	var inner slog.Handler
	if h.inner != nil {
		inner = h.inner.WithGroup(name)
	}
	return &ComponentFilterHandler{inner: inner, levels: h.levels, component: h.component}
}
