package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
)

// Manager owns the registry of engines and guarantees at most one is ever
// resident in device memory. Every activate/deactivate transition is
// serialized through a single mutex so two switches can never race to load
// two models at once.
type Manager struct {
	mu      sync.Mutex
	engines map[string]Engine
	order   []string // registration order, drives listing order
	active  Engine
	tracker *ResourceTracker
}

// NewManager creates a manager sharing the given resource tracker with any
// other resource owner (the prompt-voice service).
func NewManager(tracker *ResourceTracker) *Manager {
	if tracker == nil {
		tracker = NewResourceTracker()
	}
	return &Manager{
		engines: make(map[string]Engine),
		tracker: tracker,
	}
}

// Tracker returns the shared resource tracker.
func (m *Manager) Tracker() *ResourceTracker {
	return m.tracker
}

// Register adds an engine to the registry. Bootstrap code registers every
// engine before the first request is served.
func (m *Manager) Register(e Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := e.Name()
	if _, exists := m.engines[name]; !exists {
		m.order = append(m.order, name)
	}
	m.engines[name] = e
	log.Debug("Registered engine", "name", name)
}

// Engine looks up a registered engine by name. Unknown names fail with
// ErrEngineNotFound, carrying a fuzzy "did you mean" hint when one exists.
func (m *Manager) Engine(name string) (Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engineLocked(name)
}

func (m *Manager) engineLocked(name string) (Engine, error) {
	if e, ok := m.engines[name]; ok {
		return e, nil
	}
	if hint := m.suggestLocked(name); hint != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrEngineNotFound, name, hint)
	}
	return nil, fmt.Errorf("%w: %q", ErrEngineNotFound, name)
}

func (m *Manager) suggestLocked(name string) string {
	matches := fuzzy.Find(strings.ToLower(name), m.order)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// Engines returns a descriptor per registered engine, in registration order.
func (m *Manager) Engines() []EngineDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]EngineDescriptor, 0, len(m.order))
	for _, name := range m.order {
		e := m.engines[name]
		out = append(out, Describe(e, m.active != nil && m.active.Name() == name))
	}
	return out
}

// Active returns the currently active engine, or nil.
func (m *Manager) Active() Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ActiveName returns the active engine's name, or "".
func (m *Manager) ActiveName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.Name()
}

// Activate makes the named engine the sole resource owner. If it is already
// active this is an idempotent no-op. Otherwise any resident engine is fully
// unloaded before the target loads. On load failure the manager rolls back
// to no active engine; it never reports an engine active whose load failed.
func (m *Manager) Activate(ctx context.Context, name string) (Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.Name() == name {
		log.Debug("Engine already active", "name", name)
		return m.active, nil
	}

	target, err := m.engineLocked(name)
	if err != nil {
		return nil, err
	}

	m.deactivateLocked(ctx)

	// The prompt-voice service shares the tracker; if it holds the
	// resource the manager cannot evict it.
	if !m.tracker.Transition(ResourceLoading, name) {
		_, owner := m.tracker.Current()
		return nil, fmt.Errorf("%w: %s", ErrResourceBusy, owner)
	}
	log.Info("Loading engine", "name", name,
		"vram", humanize.SI(target.RequiredVRAMGB()*1e9, "B"))
	start := time.Now()

	if err := target.Load(ctx); err != nil {
		m.tracker.Transition(ResourceIdle, "")
		log.Error("Engine load failed", "name", name, "error", err)
		return nil, NewEngineError(name, "load", fmt.Errorf("%w: %v", ErrLoadFailed, err))
	}

	m.tracker.Transition(ResourceActive, name)
	m.active = target
	log.Info("Engine activated", "name", name,
		"took", humanize.RelTime(start, time.Now(), "", ""))
	return target, nil
}

// Deactivate unloads the current engine, if any, and returns to idle. It is
// the eviction hook the prompt-voice service calls to reclaim the resource,
// and is safe to call when nothing is active.
func (m *Manager) Deactivate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivateLocked(ctx)
}

func (m *Manager) deactivateLocked(ctx context.Context) {
	if m.active == nil {
		return
	}
	name := m.active.Name()
	m.tracker.Transition(ResourceUnloading, name)
	log.Info("Unloading engine", "name", name)

	// Release failures must never block a handoff or shutdown.
	if err := m.active.Unload(ctx); err != nil {
		log.Warn("Engine unload reported error", "name", name, "error", err)
	}
	m.active = nil
	m.tracker.Transition(ResourceIdle, "")
}
